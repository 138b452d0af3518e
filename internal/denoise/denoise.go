// Package denoise implements the first pipeline stage: it normalizes the raw
// artifact before recognition. Text documents lose their byte-order mark and
// carriage returns, PDFs are rewritten through pdfcpu's optimizer (dropping
// duplicate resources and repairing minor structural damage), and raster
// images pass through untouched for the OCR engine to handle.
package denoise

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/stage"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Executor is the default Denoiser.
type Executor struct {
	workDir string
	logger  *slog.Logger
}

// New creates a denoiser that stages PDF rewrites under workDir (the system
// temp directory when empty).
func New(workDir string, logger *slog.Logger) *Executor {
	return &Executor{workDir: workDir, logger: logging.NewComponentLogger(logger, "denoise")}
}

// SetLogger swaps the per-run logger.
func (e *Executor) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "denoise")
}

// Denoise returns the cleaned artifact.
func (e *Executor) Denoise(ctx context.Context, doc intake.Document) (intake.DenoiseOutput, error) {
	if len(doc.Content) == 0 {
		return intake.DenoiseOutput{}, fmt.Errorf("document %s has no content", doc.ID)
	}
	if err := ctx.Err(); err != nil {
		return intake.DenoiseOutput{}, err
	}
	switch {
	case doc.IsText():
		return e.cleanText(doc), nil
	case doc.IsPDF():
		return e.cleanPDF(ctx, doc)
	case doc.IsImage():
		return intake.DenoiseOutput{
			Content:  doc.Content,
			MimeType: doc.MimeType,
			Size:     int64(len(doc.Content)),
			Pages:    1,
			Notes:    []string{"image passed through"},
		}, nil
	default:
		return intake.DenoiseOutput{}, fmt.Errorf("unsupported mime type %q", doc.MimeType)
	}
}

func (e *Executor) cleanText(doc intake.Document) intake.DenoiseOutput {
	notes := make([]string, 0, 2)
	content := doc.Content
	if bytes.HasPrefix(content, utf8BOM) {
		content = content[len(utf8BOM):]
		notes = append(notes, "byte order mark removed")
	}
	if bytes.Contains(content, []byte("\r")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		content = bytes.ReplaceAll(content, []byte("\r"), []byte("\n"))
		notes = append(notes, "line endings normalized")
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	cleaned := []byte(strings.Join(lines, "\n"))
	return intake.DenoiseOutput{
		Content:  cleaned,
		MimeType: intake.MimeText,
		Size:     int64(len(cleaned)),
		Pages:    1,
		Notes:    notes,
	}
}

func (e *Executor) cleanPDF(ctx context.Context, doc intake.Document) (intake.DenoiseOutput, error) {
	dir, err := os.MkdirTemp(e.workDir, "denoise-*")
	if err != nil {
		return intake.DenoiseOutput{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Debug("denoise work dir cleanup failed", logging.Error(err))
		}
	}()

	inPath := filepath.Join(dir, "input.pdf")
	outPath := filepath.Join(dir, "optimized.pdf")
	if err := os.WriteFile(inPath, doc.Content, 0o600); err != nil {
		return intake.DenoiseOutput{}, fmt.Errorf("stage pdf: %w", err)
	}
	if err := optimizePDF(inPath, outPath); err != nil {
		return intake.DenoiseOutput{}, fmt.Errorf("optimize pdf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return intake.DenoiseOutput{}, err
	}
	pages, err := api.PageCountFile(outPath)
	if err != nil {
		return intake.DenoiseOutput{}, fmt.Errorf("count pages: %w", err)
	}
	cleaned, err := os.ReadFile(outPath)
	if err != nil {
		return intake.DenoiseOutput{}, fmt.Errorf("read optimized pdf: %w", err)
	}
	e.logger.Debug("pdf optimized",
		logging.Int64("original_bytes", int64(len(doc.Content))),
		logging.Int64("optimized_bytes", int64(len(cleaned))),
		logging.Int("pages", pages),
	)
	return intake.DenoiseOutput{
		Content:  cleaned,
		MimeType: intake.MimePDF,
		Size:     int64(len(cleaned)),
		Pages:    pages,
		Notes:    []string{"pdf optimized"},
	}, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// HealthCheck reports whether the work directory is usable.
func (e *Executor) HealthCheck(context.Context) stage.Health {
	dir, err := os.MkdirTemp(e.workDir, "denoise-health-*")
	if err != nil {
		return stage.Unhealthy("denoise", fmt.Sprintf("work dir unavailable: %v", err))
	}
	_ = os.RemoveAll(dir)
	return stage.Healthy("denoise")
}

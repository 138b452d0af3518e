// Package watermark implements the final pipeline stage, which stamps the
// cleaned artifact before it is archived. PDFs receive a diagonal text
// watermark on every page through pdfcpu; text documents get a trailing stamp
// line; images are left untouched and only the stamp is recorded. Every
// output carries the SHA256 digest of the protected bytes.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docintake/internal/fileutil"
	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/stage"
)

// pdfDescription is the pdfcpu watermark description string.
const pdfDescription = "fontname:Helvetica, points:40, rotation:45, opacity:0.25, scalefactor:0.8 rel"

// Executor is the default Watermarker.
type Executor struct {
	text    string
	workDir string
	logger  *slog.Logger
}

// New creates a watermarker that stamps text.
func New(text, workDir string, logger *slog.Logger) (*Executor, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("watermark text required")
	}
	return &Executor{text: text, workDir: workDir, logger: logging.NewComponentLogger(logger, "watermark")}, nil
}

// SetLogger swaps the per-run logger.
func (e *Executor) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "watermark")
}

// Watermark stamps the cleaned artifact.
func (e *Executor) Watermark(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput) (intake.WatermarkOutput, error) {
	if err := ctx.Err(); err != nil {
		return intake.WatermarkOutput{}, err
	}
	if len(cleaned.Content) == 0 {
		return intake.WatermarkOutput{}, errors.New("nothing to watermark")
	}
	stamp := e.stampFor(doc)
	mimeType := cleaned.MimeType
	probe := intake.Document{MimeType: mimeType}

	var content []byte
	switch {
	case probe.IsPDF():
		stamped, err := e.stampPDF(cleaned.Content)
		if err != nil {
			return intake.WatermarkOutput{}, err
		}
		content = stamped
	case probe.IsText():
		content = stampText(cleaned.Content, stamp)
	default:
		content = cleaned.Content
	}

	digest := fileutil.HashBytes(content)
	e.logger.Debug("watermark applied",
		logging.String("mime_type", mimeType),
		logging.String("digest", digest),
	)
	return intake.WatermarkOutput{
		Content:  content,
		MimeType: mimeType,
		Stamp:    stamp,
		Digest:   digest,
	}, nil
}

func (e *Executor) stampFor(doc intake.Document) string {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return e.text
	}
	return e.text + " · " + id
}

func stampText(content []byte, stamp string) []byte {
	body := strings.TrimRight(string(content), "\n")
	return []byte(body + "\n\n[" + stamp + "]\n")
}

func (e *Executor) stampPDF(content []byte) ([]byte, error) {
	dir, err := os.MkdirTemp(e.workDir, "watermark-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input.pdf")
	outPath := filepath.Join(dir, "stamped.pdf")
	if err := os.WriteFile(inPath, content, 0o600); err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.AddTextWatermarksFile(inPath, outPath, nil, false, e.text, pdfDescription, cfg); err != nil {
		return nil, fmt.Errorf("add pdf watermark: %w", err)
	}
	stamped, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read stamped pdf: %w", err)
	}
	return stamped, nil
}

// HealthCheck reports the executor ready when the stamp text is set.
func (e *Executor) HealthCheck(context.Context) stage.Health {
	if e.text == "" {
		return stage.Unhealthy("watermark", "watermark text not configured")
	}
	return stage.Healthy("watermark")
}

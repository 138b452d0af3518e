package ocr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/stage"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the command engine.
type Option func(*CommandEngine)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CommandEngine) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithWorkDir sets where input artifacts are staged for the recognizer.
func WithWorkDir(dir string) Option {
	return func(c *CommandEngine) {
		c.workDir = dir
	}
}

// CommandEngine runs an external OCR binary invoked as
// `<binary> <input> stdout -l <language>` (the tesseract CLI convention).
type CommandEngine struct {
	binary   string
	language string
	workDir  string
	exec     Executor
	logger   *slog.Logger
}

// NewCommandEngine constructs a command-backed engine.
func NewCommandEngine(binary, language string, logger *slog.Logger, opts ...Option) (*CommandEngine, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ocr binary required")
	}
	engine := &CommandEngine{
		binary:   binary,
		language: strings.TrimSpace(language),
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(logger, "ocr"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// SetLogger swaps the per-run logger.
func (c *CommandEngine) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "ocr")
}

// Recognize stages the cleaned artifact and captures the recognizer's stdout.
// Plain-text documents are read directly without invoking the binary.
func (c *CommandEngine) Recognize(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput) (intake.OCROutput, error) {
	mimeType := cleaned.MimeType
	if mimeType == "" {
		mimeType = doc.MimeType
	}
	if (intake.Document{MimeType: mimeType}).IsText() {
		return TextEngine{}.Recognize(ctx, doc, cleaned)
	}

	dir, err := os.MkdirTemp(c.workDir, "ocr-*")
	if err != nil {
		return intake.OCROutput{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input"+extensionFor(mimeType))
	if err := os.WriteFile(input, cleaned.Content, 0o600); err != nil {
		return intake.OCROutput{}, fmt.Errorf("stage ocr input: %w", err)
	}

	args := []string{input, "stdout"}
	if c.language != "" {
		args = append(args, "-l", c.language)
	}
	var b strings.Builder
	if err := c.exec.Run(ctx, c.binary, args, func(line string) {
		b.WriteString(line)
		b.WriteByte('\n')
	}); err != nil {
		return intake.OCROutput{}, fmt.Errorf("run %s: %w", filepath.Base(c.binary), err)
	}
	out, err := finish(EngineCommand, []byte(b.String()))
	if err != nil {
		return intake.OCROutput{}, err
	}
	c.logger.Debug("ocr completed",
		logging.String("binary", c.binary),
		logging.Int("characters", out.Characters),
	)
	return out, nil
}

// HealthCheck verifies the binary is on PATH.
func (c *CommandEngine) HealthCheck(context.Context) stage.Health {
	if _, err := exec.LookPath(c.binary); err != nil {
		return stage.Unhealthy("ocr", fmt.Sprintf("%s not found: %v", c.binary, err))
	}
	return stage.Healthy("ocr")
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case intake.MimePDF:
		return ".pdf"
	case intake.MimePNG:
		return ".png"
	case intake.MimeJPEG:
		return ".jpg"
	case intake.MimeTIFF:
		return ".tif"
	default:
		return ".bin"
	}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	wg.Add(1)
	go func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
		scanErr = scanner.Err()
	}(stdout)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}

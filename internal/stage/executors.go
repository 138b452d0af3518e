// Package stage declares the executor contracts for each pipeline stage. Each
// executor maps its input artifact to a typed output or returns an error; the
// workflow orchestrator owns status transitions, timeouts, and error
// classification.
package stage

import (
	"context"
	"log/slog"

	"docintake/internal/intake"
)

// Denoiser cleans the raw document.
type Denoiser interface {
	Denoise(ctx context.Context, doc intake.Document) (intake.DenoiseOutput, error)
}

// Recognizer extracts plain text from the cleaned document.
type Recognizer interface {
	Recognize(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput) (intake.OCROutput, error)
}

// DuplicateChecker looks for stored documents resembling the incoming one.
type DuplicateChecker interface {
	Check(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput, text string) (intake.DuplicateVerdict, error)
}

// Suggester extracts key-values and proposes metadata from recognized text.
type Suggester interface {
	Suggest(ctx context.Context, doc intake.Document, text string) (intake.SuggestionOutput, error)
}

// Watermarker produces the protected copy of the cleaned document.
type Watermarker interface {
	Watermark(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput) (intake.WatermarkOutput, error)
}

// LoggerAware is implemented by executors that accept a per-run logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

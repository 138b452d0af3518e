package ocr

import (
	"fmt"
	"log/slog"

	"docintake/internal/config"
	"docintake/internal/stage"
)

// NewFromConfig builds the engine selected by the [ocr] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (stage.Recognizer, error) {
	if cfg == nil {
		return NewTextEngine(), nil
	}
	switch cfg.OCR.Engine {
	case "", EngineText:
		return NewTextEngine(), nil
	case EngineCommand:
		return NewCommandEngine(cfg.OCR.Binary, cfg.OCR.Language, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.OCR.Engine)
	}
}

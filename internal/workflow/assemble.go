package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"docintake/internal/config"
	"docintake/internal/conflicts"
	"docintake/internal/denoise"
	"docintake/internal/duplicates"
	"docintake/internal/ocr"
	"docintake/internal/refdata"
	"docintake/internal/routing"
	"docintake/internal/staging"
	"docintake/internal/suggestion"
	"docintake/internal/watermark"
)

// BuildStages wires the default executors from configuration. index backs
// the duplicate check.
func BuildStages(cfg *config.Config, reference refdata.Data, index duplicates.Index, logger *slog.Logger) (StageSet, error) {
	workDir, err := staging.Prepare(cfg)
	if err != nil {
		return StageSet{}, err
	}

	recognizer, err := ocr.NewFromConfig(cfg, logger, ocr.WithWorkDir(workDir))
	if err != nil {
		return StageSet{}, fmt.Errorf("ocr engine: %w", err)
	}
	cutoff, err := cfg.IssueDateCutoffAt(time.Now())
	if err != nil {
		return StageSet{}, err
	}
	stamper, err := watermark.New(cfg.Watermark.Text, workDir, logger)
	if err != nil {
		return StageSet{}, fmt.Errorf("watermark: %w", err)
	}
	return StageSet{
		Denoiser:   denoise.New(workDir, logger),
		Recognizer: recognizer,
		Duplicates: duplicates.NewChecker(index, nil, duplicates.Thresholds{
			Block: cfg.Pipeline.DuplicateBlockPercent,
			Warn:  cfg.Pipeline.DuplicateWarnPercent,
		}, logger),
		Suggester:   suggestion.New(reference, cfg.Pipeline.RequiredFields, logger),
		Validator:   conflicts.New(cutoff),
		Watermarker: stamper,
	}, nil
}

// BuildRouter wires the routing engine from configuration.
func BuildRouter(cfg *config.Config, reference refdata.Data, logger *slog.Logger) *routing.Engine {
	return routing.New(routing.SettingsFromConfig(cfg), reference, logger)
}

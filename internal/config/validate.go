package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var knownStages = map[string]struct{}{
	"denoise":             {},
	"ocr":                 {},
	"duplicate_check":     {},
	"metadata_suggestion": {},
	"conflict_validation": {},
	"watermark":           {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateConflicts(); err != nil {
		return err
	}
	if err := c.validateRouting(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	for stage, seconds := range c.Pipeline.Timeouts {
		if _, ok := knownStages[stage]; !ok {
			return fmt.Errorf("pipeline.timeouts: unknown stage %q", stage)
		}
		if seconds < 0 {
			return fmt.Errorf("pipeline.timeouts.%s must be >= 0", stage)
		}
	}
	block := c.Pipeline.DuplicateBlockPercent
	warn := c.Pipeline.DuplicateWarnPercent
	if block <= 0 || block > 100 {
		return errors.New("pipeline.duplicate_block_percent must be in (0, 100]")
	}
	if warn < 0 || warn >= block {
		return errors.New("pipeline.duplicate_warn_percent must be >= 0 and below duplicate_block_percent")
	}
	return nil
}

func (c *Config) validateConflicts() error {
	raw := strings.TrimSpace(c.Conflicts.IssueDateCutoff)
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(IssueDateLayout, raw); err != nil {
		return fmt.Errorf("conflicts.issue_date_cutoff must use dd/mm/yyyy: %w", err)
	}
	return nil
}

func (c *Config) validateRouting() error {
	if c.Routing.LegalGroup == "" {
		return errors.New("routing.legal_group must be set")
	}
	if c.Routing.AccountingGroup == "" {
		return errors.New("routing.accounting_group must be set")
	}
	if len(c.Routing.SecurityList) == 0 {
		return errors.New("routing.security_list must include at least one recipient")
	}
	return nil
}

func (c *Config) validateOCR() error {
	switch c.OCR.Engine {
	case "text", "command":
		return nil
	default:
		return fmt.Errorf("ocr.engine: unsupported value %q (want text or command)", c.OCR.Engine)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

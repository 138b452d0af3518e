package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// IssueDateLayout is the dd/mm/yyyy layout used by Vietnamese administrative documents.
const IssueDateLayout = "02/01/2006"

// Paths contains directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	LockDir       string `toml:"lock_dir"`
	ReferenceFile string `toml:"reference_file"`
}

// Pipeline contains stage timing and duplicate policy thresholds.
type Pipeline struct {
	// Timeouts maps stage names (denoise, ocr, duplicate_check,
	// metadata_suggestion, conflict_validation, watermark) to seconds.
	Timeouts map[string]int `toml:"timeouts"`
	// DuplicateBlockPercent: similarity strictly above this halts the run.
	DuplicateBlockPercent float64 `toml:"duplicate_block_percent"`
	// DuplicateWarnPercent: similarity strictly above this (and not blocking) is a warning.
	DuplicateWarnPercent float64 `toml:"duplicate_warn_percent"`
	// RequiredFields produce missing-field warnings when absent from extraction.
	RequiredFields []string `toml:"required_fields"`
}

// Conflicts configures the data-conflict rules.
type Conflicts struct {
	// IssueDateCutoff in dd/mm/yyyy. Empty means the run date.
	IssueDateCutoff string `toml:"issue_date_cutoff"`
}

// Routing contains the organizational directory used by the auto-routing decision table.
type Routing struct {
	LegalGroup          string   `toml:"legal_group"`
	LegalApprover       string   `toml:"legal_approver"`
	AccountingGroup     string   `toml:"accounting_group"`
	AccountingApprover  string   `toml:"accounting_approver"`
	SecurityList        []string `toml:"security_list"`
	DepartmentHeadRoles []string `toml:"department_head_roles"`
	FolderRoot          string   `toml:"folder_root"`
}

// OCR selects the text recognition engine.
type OCR struct {
	Engine   string `toml:"engine"`
	Binary   string `toml:"binary"`
	Language string `toml:"language"`
}

// Watermark configures the stamp applied to accepted documents.
type Watermark struct {
	Text string `toml:"text"`
}

// Notifications contains configuration for ntfy delivery of routing notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Concurrency    int    `toml:"concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for docintake.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and lock directories plus the reference data file
//   - Pipeline: per-stage timeouts and duplicate thresholds
//   - Conflicts: data-conflict rule parameters
//   - Routing: approvers, candidate groups, and the security distribution list
//   - OCR: recognition engine selection
//   - Watermark: stamp text
//   - Notifications: ntfy delivery settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Conflicts     Conflicts     `toml:"conflicts"`
	Routing       Routing       `toml:"routing"`
	OCR           OCR           `toml:"ocr"`
	Watermark     Watermark     `toml:"watermark"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docintake.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and lock directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "docintake.db")
}

// StageTimeout returns the configured timeout for a stage, or zero when unbounded.
func (c *Config) StageTimeout(stage string) time.Duration {
	if c == nil {
		return 0
	}
	seconds, ok := c.Pipeline.Timeouts[strings.TrimSpace(stage)]
	if !ok || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// IssueDateCutoffAt resolves the issue-date cutoff. When none is configured
// the calendar day of now is used.
func (c *Config) IssueDateCutoffAt(now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Conflicts.IssueDateCutoff)
	if raw == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	cutoff, err := time.Parse(IssueDateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("conflicts.issue_date_cutoff: %w", err)
	}
	return cutoff, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

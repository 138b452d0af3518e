package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeRouting()
	c.normalizeOCR()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if c.Paths.ReferenceFile, err = expandPath(strings.TrimSpace(c.Paths.ReferenceFile)); err != nil {
		return fmt.Errorf("paths.reference_file: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	defaults := StageTimeoutDefaults()
	if c.Pipeline.Timeouts == nil {
		c.Pipeline.Timeouts = defaults
	}
	for stage, seconds := range defaults {
		if _, ok := c.Pipeline.Timeouts[stage]; !ok {
			c.Pipeline.Timeouts[stage] = seconds
		}
	}
	c.Pipeline.RequiredFields = trimList(c.Pipeline.RequiredFields)
}

func (c *Config) normalizeRouting() {
	c.Routing.LegalGroup = strings.TrimSpace(c.Routing.LegalGroup)
	c.Routing.LegalApprover = strings.TrimSpace(c.Routing.LegalApprover)
	c.Routing.AccountingGroup = strings.TrimSpace(c.Routing.AccountingGroup)
	c.Routing.AccountingApprover = strings.TrimSpace(c.Routing.AccountingApprover)
	c.Routing.SecurityList = trimList(c.Routing.SecurityList)
	c.Routing.DepartmentHeadRoles = trimList(c.Routing.DepartmentHeadRoles)
	c.Routing.FolderRoot = strings.TrimRight(strings.TrimSpace(c.Routing.FolderRoot), "/")
	if c.Routing.FolderRoot == "" {
		c.Routing.FolderRoot = defaultFolderRoot
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Engine = strings.ToLower(strings.TrimSpace(c.OCR.Engine))
	if c.OCR.Engine == "" {
		c.OCR.Engine = defaultOCREngine
	}
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	if c.OCR.Binary == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("DOCINTAKE_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.Concurrency <= 0 {
		c.Notifications.Concurrency = defaultNotifyConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

package config

const (
	defaultConfigPath            = "~/.config/docintake/config.toml"
	defaultDataDir               = "~/.local/share/docintake"
	defaultLogDir                = "~/.local/share/docintake/logs"
	defaultLockDir               = "~/.local/share/docintake/locks"
	defaultDuplicateBlockPercent = 80
	defaultDuplicateWarnPercent  = 30
	defaultLegalGroup            = "PHAP_CHE"
	defaultLegalApprover         = "legal.approver@company.vn"
	defaultAccountingGroup       = "KE_TOAN"
	defaultAccountingApprover    = "chief.accountant@company.vn"
	defaultSecurityList          = "security@company.vn"
	defaultDepartmentHeadRole    = "department_head"
	defaultFolderRoot            = "/documents"
	defaultOCREngine             = "text"
	defaultOCRBinary             = "tesseract"
	defaultOCRLanguage           = "vie"
	defaultWatermarkText         = "DOCINTAKE"
	defaultNotifyRequestTimeout  = 10
	defaultNotifyConcurrency     = 4
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// StageTimeoutDefaults lists the per-stage timeouts in seconds.
func StageTimeoutDefaults() map[string]int {
	return map[string]int{
		"denoise":             60,
		"ocr":                 120,
		"duplicate_check":     30,
		"metadata_suggestion": 30,
		"conflict_validation": 10,
		"watermark":           60,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			LockDir: defaultLockDir,
		},
		Pipeline: Pipeline{
			Timeouts:              StageTimeoutDefaults(),
			DuplicateBlockPercent: defaultDuplicateBlockPercent,
			DuplicateWarnPercent:  defaultDuplicateWarnPercent,
			RequiredFields:        []string{"so_hieu", "ngay_ban_hanh", "trich_yeu"},
		},
		Routing: Routing{
			LegalGroup:          defaultLegalGroup,
			LegalApprover:       defaultLegalApprover,
			AccountingGroup:     defaultAccountingGroup,
			AccountingApprover:  defaultAccountingApprover,
			SecurityList:        []string{defaultSecurityList},
			DepartmentHeadRoles: []string{defaultDepartmentHeadRole},
			FolderRoot:          defaultFolderRoot,
		},
		OCR: OCR{
			Engine:   defaultOCREngine,
			Binary:   defaultOCRBinary,
			Language: defaultOCRLanguage,
		},
		Watermark: Watermark{
			Text: defaultWatermarkText,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Concurrency:    defaultNotifyConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package routing

import (
	"slices"

	"docintake/internal/config"
)

// Settings carries the organization-specific routing targets.
type Settings struct {
	LegalGroup          string
	LegalApprover       string
	AccountingGroup     string
	AccountingApprover  string
	SecurityList        []string
	DepartmentHeadRoles []string
	FolderRoot          string
}

// SettingsFromConfig extracts routing settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	return Settings{
		LegalGroup:          cfg.Routing.LegalGroup,
		LegalApprover:       cfg.Routing.LegalApprover,
		AccountingGroup:     cfg.Routing.AccountingGroup,
		AccountingApprover:  cfg.Routing.AccountingApprover,
		SecurityList:        slices.Clone(cfg.Routing.SecurityList),
		DepartmentHeadRoles: slices.Clone(cfg.Routing.DepartmentHeadRoles),
		FolderRoot:          cfg.Routing.FolderRoot,
	}
}

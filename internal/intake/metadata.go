package intake

import "slices"

// Document categories recognized by the routing rules.
const (
	CategoryContract       = "CONTRACT"
	CategoryFinanceReport  = "FINANCE_REPORT"
	CategoryDecision       = "DECISION"
	CategoryOfficialLetter = "OFFICIAL_LETTER"
	CategoryGeneral        = "GENERAL"
)

// Confidentiality levels.
const (
	ConfidentialityPublic   = "PUBLIC"
	ConfidentialityInternal = "INTERNAL"
	ConfidentialityLocked   = "LOCKED"
)

// Access types.
const (
	AccessPublic     = "PUBLIC"
	AccessDepartment = "DEPARTMENT"
	AccessPrivate    = "PRIVATE"
)

// Urgency and security markers as they appear in Vietnamese documents.
const (
	UrgencyNormal  = "Thường"
	UrgencyUrgent  = "Khẩn"
	UrgencyFlash   = "Hỏa tốc"
	SecurityNormal = "Normal"
	SecurityHigh   = "High"
)

// Metadata is the user-facing document description used for routing.
type Metadata struct {
	Title           string      `json:"title" toml:"title" yaml:"title"`
	Category        string      `json:"category" toml:"category" yaml:"category"`
	Tags            []string    `json:"tags,omitempty" toml:"tags" yaml:"tags"`
	AccessType      string      `json:"access_type,omitempty" toml:"access_type" yaml:"access_type"`
	Confidentiality string      `json:"confidentiality" toml:"confidentiality" yaml:"confidentiality"`
	KeyValues       KeyValueSet `json:"key_values,omitempty" toml:"key_values" yaml:"key_values"`
	Urgency         string      `json:"urgency,omitempty" toml:"urgency" yaml:"urgency"`
	Security        string      `json:"security,omitempty" toml:"security" yaml:"security"`
	OwnerDepartment string      `json:"owner_department,omitempty" toml:"owner_department" yaml:"owner_department"`
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	out.Tags = slices.Clone(m.Tags)
	out.KeyValues = m.KeyValues.Clone()
	return out
}

// HasTag reports whether tag is attached to the metadata.
func (m Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

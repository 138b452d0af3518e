package suggestion

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/refdata"
)

// Suggester is the default metadata Suggester.
type Suggester struct {
	reference refdata.Data
	required  []string
	logger    *slog.Logger
}

// New constructs a suggester over the session reference data. required lists
// the fields reported as missing when absent.
func New(reference refdata.Data, required []string, logger *slog.Logger) *Suggester {
	return &Suggester{
		reference: reference,
		required:  slices.Clone(required),
		logger:    logging.NewComponentLogger(logger, "suggestion"),
	}
}

// SetLogger swaps the per-run logger.
func (s *Suggester) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "suggestion")
}

// Suggest extracts key-values and proposes metadata.
func (s *Suggester) Suggest(ctx context.Context, doc intake.Document, text string) (intake.SuggestionOutput, error) {
	if err := ctx.Err(); err != nil {
		return intake.SuggestionOutput{}, err
	}
	text = norm.NFC.String(text)
	values := ExtractKeyValues(text)

	metadata := intake.Metadata{
		Title:           suggestTitle(values, text),
		Category:        s.suggestCategory(text),
		KeyValues:       values,
		OwnerDepartment: doc.OwnerDepartment,
		Security:        intake.SecurityNormal,
		Confidentiality: intake.ConfidentialityInternal,
	}
	if raw, ok := values.Get(intake.FieldUrgency); ok {
		metadata.Urgency = canonicalUrgency(raw)
	}
	if raw, ok := values.Get(intake.FieldSecurity); ok && isSecret(raw) {
		metadata.Security = intake.SecurityHigh
		metadata.Confidentiality = intake.ConfidentialityLocked
	}
	metadata = Derive(metadata)

	missing := make([]string, 0)
	for _, field := range s.required {
		if v, ok := values.Get(field); !ok || v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		logging.WarnWithContext(s.logger, "required fields missing from document", "missing_fields",
			logging.Strings("missing_fields", missing),
			logging.String(logging.FieldErrorHint, "review the suggested metadata before finalizing"),
			logging.String(logging.FieldImpact, "conflict checks skip absent fields"),
		)
	}
	return intake.SuggestionOutput{
		KeyValues:     values,
		Metadata:      metadata,
		MissingFields: missing,
	}, nil
}

func suggestTitle(values intake.KeyValueSet, text string) string {
	if summary, ok := values.Get(intake.FieldSummary); ok && summary != "" {
		return summary
	}
	return firstLine(text)
}

// suggestCategory scores each category by keyword hits and returns the best;
// ties keep reference order. No hits selects the fallback category.
func (s *Suggester) suggestCategory(text string) string {
	lowered := cases.Lower(language.Vietnamese).String(text)
	best, bestScore := refdata.FallbackCategory, 0
	for _, category := range s.reference.Categories {
		score := 0
		for _, keyword := range category.Keywords {
			score += strings.Count(lowered, cases.Lower(language.Vietnamese).String(keyword))
		}
		if score > bestScore {
			best, bestScore = category.Code, score
		}
	}
	return best
}

var urgencyCanonical = map[string]string{
	"khẩn":        intake.UrgencyUrgent,
	"thượng khẩn": "Thượng khẩn",
	"hỏa tốc":     intake.UrgencyFlash,
	"hoả tốc":     intake.UrgencyFlash,
	"thường":      intake.UrgencyNormal,
	"bình thường": intake.UrgencyNormal,
}

func canonicalUrgency(raw string) string {
	key := cases.Lower(language.Vietnamese).String(strings.TrimSpace(raw))
	if canonical, ok := urgencyCanonical[key]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}

func isSecret(raw string) bool {
	switch cases.Lower(language.Vietnamese).String(strings.TrimSpace(raw)) {
	case "mật", "tối mật", "tuyệt mật":
		return true
	default:
		return false
	}
}

func accessFor(confidentiality string) string {
	switch confidentiality {
	case intake.ConfidentialityPublic:
		return intake.AccessPublic
	case intake.ConfidentialityLocked:
		return intake.AccessPrivate
	default:
		return intake.AccessDepartment
	}
}

const secretTag = "mật"

// Derive recomputes the fields that follow from urgency, security, and
// confidentiality: High security locks the document, the access type tracks
// confidentiality, and the urgency and secret tags are rebuilt. Other tags
// are kept.
func Derive(metadata intake.Metadata) intake.Metadata {
	if metadata.Security == intake.SecurityHigh {
		metadata.Confidentiality = intake.ConfidentialityLocked
	}
	metadata.AccessType = accessFor(metadata.Confidentiality)

	tags := make([]string, 0, len(metadata.Tags)+2)
	for _, tag := range metadata.Tags {
		if !derivedTag(tag) && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	for _, tag := range suggestTags(metadata) {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	metadata.Tags = tags
	return metadata
}

// suggestTags lowercases the urgency marker and flags secret documents.
func suggestTags(metadata intake.Metadata) []string {
	tags := make([]string, 0, 2)
	if metadata.Urgency != "" && metadata.Urgency != intake.UrgencyNormal {
		tags = append(tags, cases.Lower(language.Vietnamese).String(metadata.Urgency))
	}
	if metadata.Security == intake.SecurityHigh {
		tags = append(tags, secretTag)
	}
	return tags
}

func derivedTag(tag string) bool {
	if tag == secretTag {
		return true
	}
	for _, canonical := range urgencyCanonical {
		if canonical != intake.UrgencyNormal && cases.Lower(language.Vietnamese).String(canonical) == tag {
			return true
		}
	}
	return false
}

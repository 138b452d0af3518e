package conflicts

import (
	"strings"
	"time"

	"docintake/internal/intake"
)

// Validator evaluates an ordered rule list.
type Validator struct {
	rules []Rule
}

// New builds a validator with the default rules and the given issue-date
// cutoff.
func New(cutoff time.Time) *Validator {
	return &Validator{rules: DefaultRules(cutoff)}
}

// NewWithRules builds a validator over a custom rule list, evaluated in the
// given order.
func NewWithRules(rules []Rule) *Validator {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Validator{rules: copied}
}

// Rules returns the rule list in evaluation order.
func (v *Validator) Rules() []Rule {
	out := make([]Rule, len(v.rules))
	copy(out, v.rules)
	return out
}

// Validate returns one Conflict per violated rule, in rule order. The result
// is never nil so callers can serialize it as an empty list.
func (v *Validator) Validate(values intake.KeyValueSet) []intake.Conflict {
	conflicts := make([]intake.Conflict, 0)
	for _, rule := range v.rules {
		value, ok := values.Get(rule.Field)
		if !ok || value == "" {
			continue
		}
		passed, reason := rule.Check(value)
		if passed {
			continue
		}
		severity := rule.Severity
		if severity == "" {
			severity = intake.SeverityWarning
		}
		conflicts = append(conflicts, intake.Conflict{
			Field:    rule.Field,
			Value:    value,
			Message:  render(rule, reason, value),
			Severity: severity,
		})
	}
	return conflicts
}

// Report wraps Validate as the conflict-validation stage output.
func (v *Validator) Report(values intake.KeyValueSet) intake.ValidationReport {
	return intake.ValidationReport{Conflicts: v.Validate(values)}
}

func render(rule Rule, reason, value string) string {
	template, ok := rule.Messages[reason]
	if !ok {
		template = "Trường {field} không hợp lệ (giá trị: {value})"
	}
	return strings.NewReplacer("{field}", rule.Field, "{value}", value).Replace(template)
}

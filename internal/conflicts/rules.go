package conflicts

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docintake/internal/intake"
)

// DateLayout is the day/month/year layout used in Vietnamese documents.
// Single-digit days and months are accepted.
const DateLayout = "2/1/2006"

// Check evaluates a field value. It returns ok=false with a reason key when
// the value violates the rule.
type Check func(value string) (ok bool, reason string)

// Rule ties a field to a check and its message templates keyed by reason.
type Rule struct {
	ID       string
	Field    string
	Check    Check
	Messages map[string]string
	Severity intake.Severity
}

// Reasons reported by the built-in checks.
const (
	ReasonNegative    = "negative"
	ReasonNotNumber   = "not_number"
	ReasonAfterCutoff = "after_cutoff"
	ReasonNotDate     = "not_date"
	ReasonNoDelimiter = "no_delimiter"
)

// DefaultRules returns the rule set in evaluation order: quantity, amount,
// issue date, reference number.
func DefaultRules(cutoff time.Time) []Rule {
	cutoffText := cutoff.Format("02/01/2006")
	return []Rule{
		{
			ID:    "quantity-non-negative",
			Field: intake.FieldQuantity,
			Check: nonNegative,
			Messages: map[string]string{
				ReasonNegative:  "Số lượng không được âm (giá trị: {value})",
				ReasonNotNumber: "Số lượng không phải là số hợp lệ (giá trị: {value})",
			},
			Severity: intake.SeverityWarning,
		},
		{
			ID:    "amount-non-negative",
			Field: intake.FieldAmount,
			Check: nonNegative,
			Messages: map[string]string{
				ReasonNegative:  "Giá trị không được âm (giá trị: {value})",
				ReasonNotNumber: "Giá trị không phải là số hợp lệ (giá trị: {value})",
			},
			Severity: intake.SeverityWarning,
		},
		{
			ID:    "issue-date-not-after-cutoff",
			Field: intake.FieldIssueDate,
			Check: notAfter(cutoff),
			Messages: map[string]string{
				ReasonAfterCutoff: "Ngày ban hành {value} sau ngày giới hạn " + cutoffText,
				ReasonNotDate:     "Ngày ban hành không đúng định dạng dd/mm/yyyy (giá trị: {value})",
			},
			Severity: intake.SeverityWarning,
		},
		{
			ID:    "reference-number-delimiter",
			Field: intake.FieldDocumentNumber,
			Check: containsDelimiter("/"),
			Messages: map[string]string{
				ReasonNoDelimiter: "Số hiệu {value} thiếu dấu phân cách \"/\"",
			},
			Severity: intake.SeverityWarning,
		},
	}
}

func nonNegative(value string) (bool, string) {
	n, err := ParseNumber(value)
	if err != nil {
		return false, ReasonNotNumber
	}
	if n < 0 {
		return false, ReasonNegative
	}
	return true, ""
}

func notAfter(cutoff time.Time) Check {
	cutoffDay := truncateDay(cutoff)
	return func(value string) (bool, string) {
		date, err := ParseDate(value)
		if err != nil {
			return false, ReasonNotDate
		}
		if date.After(cutoffDay) {
			return false, ReasonAfterCutoff
		}
		return true, ""
	}
}

func containsDelimiter(delim string) Check {
	return func(value string) (bool, string) {
		if strings.Contains(value, delim) {
			return true, ""
		}
		return false, ReasonNoDelimiter
	}
}

// ParseDate parses a dd/mm/yyyy date in UTC.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var (
	dotGrouped   = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+(,\d+)?$`)
	commaGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	currencyTail = regexp.MustCompile(`(?i)\s*(vnđ|vnd|đồng|đ)$`)
)

// ParseNumber parses a quantity or amount as written in Vietnamese documents.
// "1.000.000" uses dots as thousands separators and "," as the decimal mark;
// "1,000,000.5" style grouping and plain numbers are accepted too. A trailing
// currency marker (đ, VND, VNĐ, đồng) is ignored. NaN and infinities are
// rejected.
func ParseNumber(value string) (float64, error) {
	s := strings.TrimSpace(value)
	s = strings.TrimSpace(currencyTail.ReplaceAllString(s, ""))
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case dotGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case commaGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && !strings.Contains(s, "."):
		s = strings.Replace(s, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("parse number %q: not a finite value", value)
	}
	return n, nil
}

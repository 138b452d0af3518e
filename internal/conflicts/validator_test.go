package conflicts

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"docintake/internal/intake"
)

var cutoff = time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

func kv(pairs ...string) intake.KeyValueSet {
	out := intake.KeyValueSet{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = intake.KeyValue{Value: pairs[i+1]}
	}
	return out
}

func fieldsOf(conflicts []intake.Conflict) []string {
	out := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, c.Field)
	}
	return out
}

func TestQuantityRule(t *testing.T) {
	v := New(cutoff)

	got := v.Validate(kv(intake.FieldQuantity, "-5"))
	if len(got) != 1 || got[0].Field != intake.FieldQuantity {
		t.Fatalf("expected one so_luong conflict, got %+v", got)
	}
	if got[0].Severity != intake.SeverityWarning {
		t.Fatalf("expected warning severity, got %s", got[0].Severity)
	}
	if !strings.Contains(got[0].Message, "-5") {
		t.Fatalf("expected message to include value, got %q", got[0].Message)
	}

	if got := v.Validate(kv(intake.FieldQuantity, "5")); len(got) != 0 {
		t.Fatalf("expected no conflict for positive quantity, got %+v", got)
	}
}

func TestIssueDateCutoff(t *testing.T) {
	v := New(cutoff)
	tests := []struct {
		date string
		want int
	}{
		{"21/08/2025", 1},
		{"20/08/2025", 0},
		{"19/08/2025", 0},
		{"1/9/2025", 1},
		{"2025-08-19", 1},
	}
	for _, tt := range tests {
		got := v.Validate(kv(intake.FieldIssueDate, tt.date))
		if len(got) != tt.want {
			t.Fatalf("date %s: expected %d conflicts, got %+v", tt.date, tt.want, got)
		}
	}
}

func TestReferenceNumberDelimiter(t *testing.T) {
	v := New(cutoff)
	if got := v.Validate(kv(intake.FieldDocumentNumber, "123/QĐ-UBND")); len(got) != 0 {
		t.Fatalf("expected valid reference number, got %+v", got)
	}
	got := v.Validate(kv(intake.FieldDocumentNumber, "123-QĐ"))
	if len(got) != 1 || !strings.Contains(got[0].Message, "123-QĐ") {
		t.Fatalf("expected delimiter conflict, got %+v", got)
	}
}

func TestAllRulesEvaluatedInFixedOrder(t *testing.T) {
	v := New(cutoff)
	input := kv(
		intake.FieldDocumentNumber, "45",
		intake.FieldIssueDate, "01/01/2030",
		intake.FieldAmount, "-1.000.000",
		intake.FieldQuantity, "-2",
		intake.FieldSummary, "ignored",
	)
	got := fieldsOf(v.Validate(input))
	want := []string{intake.FieldQuantity, intake.FieldAmount, intake.FieldIssueDate, intake.FieldDocumentNumber}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("conflict order mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	v := New(cutoff)
	input := kv(intake.FieldQuantity, "abc", intake.FieldAmount, "-3", intake.FieldDocumentNumber, "X")
	first := v.Validate(input)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, v.Validate(input)); diff != "" {
			t.Fatalf("validation not stable on iteration %d:\n%s", i, diff)
		}
	}
}

func TestAbsentAndBlankFieldsSkipped(t *testing.T) {
	v := New(cutoff)
	got := v.Validate(kv(intake.FieldQuantity, "   "))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
	if got := v.Validate(nil); len(got) != 0 {
		t.Fatalf("expected no conflicts for empty input, got %+v", got)
	}
}

func TestNonNumericValueIsConflict(t *testing.T) {
	got := New(cutoff).Validate(kv(intake.FieldAmount, "mười triệu"))
	if len(got) != 1 || !strings.Contains(got[0].Message, "không phải là số") {
		t.Fatalf("expected not-a-number conflict, got %+v", got)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.000.000", 1000000},
		{"1.250.000,5", 1250000.5},
		{"1,000,000.25", 1000000.25},
		{"12,5", 12.5},
		{"-5", -5},
		{"2.500.000 đ", 2500000},
		{"300 VNĐ", 300},
		{"3.5", 3.5},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		if err != nil {
			t.Fatalf("ParseNumber(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, in := range []string{"abc", "NaN", "Inf", "-Infinity"} {
		if _, err := ParseNumber(in); err == nil {
			t.Fatalf("ParseNumber(%q): expected error", in)
		}
	}
}

func TestNonFiniteQuantityIsConflict(t *testing.T) {
	v := New(cutoff)
	for _, value := range []string{"NaN", "nan", "+Inf"} {
		got := v.Validate(kv(intake.FieldQuantity, value))
		if len(got) != 1 || !strings.Contains(got[0].Message, "không phải là số") {
			t.Fatalf("so_luong=%q: expected not-a-number conflict, got %+v", value, got)
		}
	}
}

func TestCustomRulesAndFallbackMessage(t *testing.T) {
	v := NewWithRules([]Rule{{
		ID:    "summary-present",
		Field: intake.FieldSummary,
		Check: func(value string) (bool, string) { return len(value) > 3, "short" },
	}})
	got := v.Validate(kv(intake.FieldSummary, "ab"))
	if len(got) != 1 {
		t.Fatalf("expected one conflict, got %+v", got)
	}
	if got[0].Message != "Trường trich_yeu không hợp lệ (giá trị: ab)" {
		t.Fatalf("unexpected fallback message %q", got[0].Message)
	}
	if got[0].Severity != intake.SeverityWarning {
		t.Fatalf("expected default warning severity, got %s", got[0].Severity)
	}
}

func TestReportCountsBlocking(t *testing.T) {
	report := New(cutoff).Report(kv(intake.FieldQuantity, "-1"))
	if len(report.Conflicts) != 1 || report.BlockingCount() != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

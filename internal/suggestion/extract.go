package suggestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"docintake/internal/intake"
)

// Confidence levels attached to extracted values.
const (
	ConfidenceLabelled = 0.9
	ConfidenceProse    = 0.7
	ConfidenceFallback = 0.5
)

type labelPattern struct {
	field   string
	pattern *regexp.Regexp
}

func labelled(field string, labels ...string) labelPattern {
	alternatives := make([]string, 0, len(labels))
	for _, label := range labels {
		alternatives = append(alternatives, regexp.QuoteMeta(label))
	}
	expr := `(?im)^[ \t]*(?:` + strings.Join(alternatives, "|") + `)[ \t]*[:：][ \t]*(\S.*?)[ \t]*$`
	return labelPattern{field: field, pattern: regexp.MustCompile(expr)}
}

// labelPatterns are tried in order; the first hit for a field wins.
var labelPatterns = []labelPattern{
	labelled(intake.FieldDocumentNumber, "Số hiệu", "Số ký hiệu", "Số"),
	labelled(intake.FieldIssueDate, "Ngày ban hành", "Ngày ký"),
	labelled(intake.FieldQuantity, "Số lượng"),
	labelled(intake.FieldAmount, "Tổng giá trị", "Giá trị hợp đồng", "Giá trị"),
	labelled(intake.FieldSummary, "Trích yếu", "V/v", "Về việc"),
	labelled(intake.FieldUrgency, "Độ khẩn"),
	labelled(intake.FieldSecurity, "Độ mật"),
	labelled(intake.FieldIssuer, "Cơ quan ban hành", "Nơi ban hành"),
}

var proseDate = regexp.MustCompile(`(?i)ngày\s+(\d{1,2})\s+tháng\s+(\d{1,2})\s+năm\s+(\d{4})`)

var standaloneUrgency = regexp.MustCompile(`(?im)^[ \t]*(HỎA TỐC|HOẢ TỐC|THƯỢNG KHẨN|KHẨN)[ \t]*$`)

// ExtractKeyValues reads labelled fields from text.
func ExtractKeyValues(text string) intake.KeyValueSet {
	values := intake.KeyValueSet{}
	for _, lp := range labelPatterns {
		if _, seen := values[lp.field]; seen {
			continue
		}
		match := lp.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		values[lp.field] = withConfidence(match[1], ConfidenceLabelled)
	}
	if _, ok := values[intake.FieldIssueDate]; !ok {
		if m := proseDate.FindStringSubmatch(text); m != nil {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			values[intake.FieldIssueDate] = withConfidence(fmt.Sprintf("%02d/%02d/%s", day, month, m[3]), ConfidenceProse)
		}
	}
	if _, ok := values[intake.FieldUrgency]; !ok {
		if m := standaloneUrgency.FindStringSubmatch(text); m != nil {
			values[intake.FieldUrgency] = withConfidence(m[1], ConfidenceProse)
		}
	}
	return values
}

func withConfidence(value string, confidence float64) intake.KeyValue {
	c := confidence
	return intake.KeyValue{Value: strings.TrimSpace(value), Confidence: &c}
}

// firstLine returns the first non-empty line of text.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

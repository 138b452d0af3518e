package intake

import (
	"slices"
	"strings"
	"time"
)

// Well-known key-value field names.
const (
	FieldDocumentNumber = "so_hieu"
	FieldIssueDate      = "ngay_ban_hanh"
	FieldQuantity       = "so_luong"
	FieldAmount         = "gia_tri"
	FieldSummary        = "trich_yeu"
	FieldUrgency        = "do_khan"
	FieldSecurity       = "do_mat"
	FieldIssuer         = "co_quan_ban_hanh"
)

// KeyValue is one extracted field value.
type KeyValue struct {
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// KeyValueSet maps field names to extracted values.
type KeyValueSet map[string]KeyValue

// Get returns the trimmed value for field and whether it was present.
func (s KeyValueSet) Get(field string) (string, bool) {
	kv, ok := s[field]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(kv.Value), true
}

// Keys returns the field names in sorted order.
func (s KeyValueSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns an independent copy.
func (s KeyValueSet) Clone() KeyValueSet {
	if s == nil {
		return nil
	}
	out := make(KeyValueSet, len(s))
	for k, v := range s {
		if v.Confidence != nil {
			c := *v.Confidence
			v.Confidence = &c
		}
		out[k] = v
	}
	return out
}

// Severity classifies a conflict.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Conflict describes a field that failed a consistency rule.
type Conflict struct {
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// DuplicateMatch is a stored document that resembles the incoming one.
type DuplicateMatch struct {
	DocumentID        string    `json:"document_id"`
	Name              string    `json:"name"`
	SimilarityPercent float64   `json:"similarity_percent"`
	MatchType         string    `json:"match_type"`
	Severity          Severity  `json:"severity"`
	Owner             string    `json:"owner,omitempty"`
	Path              string    `json:"path,omitempty"`
	UploadDate        time.Time `json:"upload_date"`
}

// Duplicate match types.
const (
	MatchExact   = "exact"
	MatchSimilar = "similar"
)

package intake

import (
	"encoding/json"
	"fmt"
	"time"
)

// StageName identifies one step of the intake pipeline.
type StageName string

const (
	StageDenoise            StageName = "denoise"
	StageOCR                StageName = "ocr"
	StageDuplicateCheck     StageName = "duplicate_check"
	StageMetadataSuggestion StageName = "metadata_suggestion"
	StageConflictValidation StageName = "conflict_validation"
	StageWatermark          StageName = "watermark"
)

// Stages returns the pipeline stages in execution order.
func Stages() []StageName {
	return []StageName{
		StageDenoise,
		StageOCR,
		StageDuplicateCheck,
		StageMetadataSuggestion,
		StageConflictValidation,
		StageWatermark,
	}
}

// Step returns the 1-based position of the stage, or 0 when unknown.
func (s StageName) Step() int {
	for idx, name := range Stages() {
		if name == s {
			return idx + 1
		}
	}
	return 0
}

// Valid reports whether s names a pipeline stage.
func (s StageName) Valid() bool { return s.Step() > 0 }

// StageStatus tracks the lifecycle of a single stage.
type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusProcessing StageStatus = "processing"
	StatusCompleted  StageStatus = "completed"
	StatusError      StageStatus = "error"
	StatusBlocked    StageStatus = "blocked"
)

// Terminal reports whether the status is final for the stage.
func (s StageStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusBlocked:
		return true
	default:
		return false
	}
}

// StageOutput is the typed payload produced by a stage executor. The set of
// implementations is closed to this package.
type StageOutput interface {
	OutputKind() string
	stageOutput()
}

// DenoiseOutput is the cleaned document.
type DenoiseOutput struct {
	Content  []byte   `json:"-"`
	MimeType string   `json:"mime_type"`
	Size     int64    `json:"size"`
	Pages    int      `json:"pages,omitempty"`
	Notes    []string `json:"notes,omitempty"`
}

// OCROutput is the recognized plain text.
type OCROutput struct {
	Text       string `json:"text"`
	Engine     string `json:"engine"`
	Characters int    `json:"characters"`
}

// DuplicateVerdict summarizes the duplicate check.
type DuplicateVerdict struct {
	IsDuplicate bool             `json:"is_duplicate"`
	Blocking    bool             `json:"blocking"`
	Matches     []DuplicateMatch `json:"matches,omitempty"`
	Decision    string           `json:"decision,omitempty"`
}

// SuggestionOutput holds extracted key-values and proposed metadata.
type SuggestionOutput struct {
	KeyValues     KeyValueSet `json:"key_values"`
	Metadata      Metadata    `json:"metadata"`
	MissingFields []string    `json:"missing_fields,omitempty"`
}

// ValidationReport lists the data conflicts found in the key-values.
type ValidationReport struct {
	Conflicts []Conflict `json:"conflicts"`
}

// WatermarkOutput is the protected copy of the document.
type WatermarkOutput struct {
	Content  []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Stamp    string `json:"stamp"`
	Digest   string `json:"digest"`
}

func (DenoiseOutput) OutputKind() string    { return "denoised" }
func (OCROutput) OutputKind() string        { return "ocr_text" }
func (DuplicateVerdict) OutputKind() string { return "duplicate_verdict" }
func (SuggestionOutput) OutputKind() string { return "suggestion" }
func (ValidationReport) OutputKind() string { return "validation_report" }
func (WatermarkOutput) OutputKind() string  { return "watermarked" }

func (DenoiseOutput) stageOutput()    {}
func (OCROutput) stageOutput()        {}
func (DuplicateVerdict) stageOutput() {}
func (SuggestionOutput) stageOutput() {}
func (ValidationReport) stageOutput() {}
func (WatermarkOutput) stageOutput()  {}

// BlockingCount returns the number of blocking conflicts.
func (r ValidationReport) BlockingCount() int {
	count := 0
	for _, c := range r.Conflicts {
		if c.Severity == SeverityBlocking {
			count++
		}
	}
	return count
}

// StageResult records the outcome of one stage.
type StageResult struct {
	Name        StageName   `json:"name"`
	Status      StageStatus `json:"status"`
	Output      StageOutput `json:"-"`
	Detail      string      `json:"detail,omitempty"`
	ErrorKind   string      `json:"error_kind,omitempty"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	CompletedAt time.Time   `json:"completed_at,omitzero"`
}

// Duration returns the elapsed stage time when both timestamps are known.
func (r StageResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

type stageResultJSON struct {
	Name        StageName       `json:"name"`
	Status      StageStatus     `json:"status"`
	OutputKind  string          `json:"output_kind,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Detail      string          `json:"detail,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	StartedAt   time.Time       `json:"started_at,omitzero"`
	CompletedAt time.Time       `json:"completed_at,omitzero"`
}

// MarshalJSON tags the output payload with its kind so it can be decoded
// back into the matching concrete type.
func (r StageResult) MarshalJSON() ([]byte, error) {
	wire := stageResultJSON{
		Name:        r.Name,
		Status:      r.Status,
		Detail:      r.Detail,
		ErrorKind:   r.ErrorKind,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Output != nil {
		payload, err := json.Marshal(r.Output)
		if err != nil {
			return nil, err
		}
		wire.OutputKind = r.Output.OutputKind()
		wire.Output = payload
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores a StageResult encoded by MarshalJSON.
func (r *StageResult) UnmarshalJSON(data []byte) error {
	var wire stageResultJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = StageResult{
		Name:        wire.Name,
		Status:      wire.Status,
		Detail:      wire.Detail,
		ErrorKind:   wire.ErrorKind,
		StartedAt:   wire.StartedAt,
		CompletedAt: wire.CompletedAt,
	}
	if wire.OutputKind == "" {
		return nil
	}
	output, err := decodeOutput(wire.OutputKind, wire.Output)
	if err != nil {
		return err
	}
	r.Output = output
	return nil
}

func decodeOutput(kind string, payload json.RawMessage) (StageOutput, error) {
	switch kind {
	case DenoiseOutput{}.OutputKind():
		var out DenoiseOutput
		err := json.Unmarshal(payload, &out)
		return out, err
	case OCROutput{}.OutputKind():
		var out OCROutput
		err := json.Unmarshal(payload, &out)
		return out, err
	case DuplicateVerdict{}.OutputKind():
		var out DuplicateVerdict
		err := json.Unmarshal(payload, &out)
		return out, err
	case SuggestionOutput{}.OutputKind():
		var out SuggestionOutput
		err := json.Unmarshal(payload, &out)
		return out, err
	case ValidationReport{}.OutputKind():
		var out ValidationReport
		err := json.Unmarshal(payload, &out)
		return out, err
	case WatermarkOutput{}.OutputKind():
		var out WatermarkOutput
		err := json.Unmarshal(payload, &out)
		return out, err
	default:
		return nil, fmt.Errorf("unknown stage output kind %q", kind)
	}
}

package runstate

import (
	"encoding/json"
	"slices"

	"docintake/internal/intake"
	"docintake/internal/refdata"
)

// Step is the coarse phase of the intake session.
type Step string

const (
	StepSelect     Step = "select"
	StepProcessing Step = "processing"
	StepReview     Step = "review"
	StepComplete   Step = "complete"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepSelect, StepProcessing, StepReview, StepComplete:
		return true
	default:
		return false
	}
}

// Progress is the last reported position inside the run.
type Progress struct {
	Stage   intake.StageName `json:"stage,omitempty"`
	Percent int              `json:"percent"`
	Message string           `json:"message,omitempty"`
}

// State is an immutable snapshot of the intake session.
type State struct {
	Step      Step                    `json:"step"`
	Document  *intake.Document        `json:"document,omitempty"`
	RunID     string                  `json:"run_id,omitempty"`
	Progress  Progress                `json:"progress"`
	Stages    []intake.StageResult    `json:"stages,omitempty"`
	Metadata  *intake.Metadata        `json:"metadata,omitempty"`
	Routing   *intake.RoutingDecision `json:"routing,omitempty"`
	Final     *intake.RunRecord       `json:"final,omitempty"`
	Reference refdata.Data            `json:"-"`
}

// Initial returns the document-selection state carrying reference.
func Initial(reference refdata.Data) State {
	return State{Step: StepSelect, Reference: reference}
}

// Stage returns the recorded result for name.
func (s State) Stage(name intake.StageName) (intake.StageResult, bool) {
	idx := slices.IndexFunc(s.Stages, func(r intake.StageResult) bool { return r.Name == name })
	if idx < 0 {
		return intake.StageResult{}, false
	}
	return s.Stages[idx], true
}

// Halted reports whether the last recorded stage stopped the run.
func (s State) Halted() bool {
	if len(s.Stages) == 0 {
		return false
	}
	last := s.Stages[len(s.Stages)-1].Status
	return last == intake.StatusBlocked || last == intake.StatusError
}

// Marshal serialises the state without document bytes or reference data.
func (s State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// clone copies the slices and pointers a reducer may replace so that the
// returned state shares no mutable storage with the input.
func (s State) clone() State {
	out := s
	out.Stages = slices.Clone(s.Stages)
	if s.Document != nil {
		doc := *s.Document
		out.Document = &doc
	}
	if s.Metadata != nil {
		md := s.Metadata.Clone()
		out.Metadata = &md
	}
	if s.Routing != nil {
		decision := *s.Routing
		decision.Notifications = slices.Clone(s.Routing.Notifications)
		out.Routing = &decision
	}
	if s.Final != nil {
		record := *s.Final
		record.Stages = slices.Clone(s.Final.Stages)
		out.Final = &record
	}
	return out
}

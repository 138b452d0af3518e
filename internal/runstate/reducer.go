package runstate

import (
	"fmt"

	"docintake/internal/intake"
)

// Action is a state transition request. The set of actions is closed to this
// package.
type Action interface {
	actionName() string
}

// SetStep moves the session to another phase.
type SetStep struct{ Step Step }

// SetDocument selects the document for a new run and clears earlier results.
type SetDocument struct {
	Document intake.Document
	RunID    string
}

// UpdateProgress records the latest progress report.
type UpdateProgress struct{ Progress Progress }

// SetStageStatus records a stage transition.
type SetStageStatus struct{ Result intake.StageResult }

// SetMetadata stores the suggested or reviewed metadata.
type SetMetadata struct{ Metadata intake.Metadata }

// SetRoutingResult stores the routing decision.
type SetRoutingResult struct{ Decision intake.RoutingDecision }

// SetFinalResult stores the finished run and completes the session.
type SetFinalResult struct{ Record intake.RunRecord }

// Reset returns to document selection, keeping reference data.
type Reset struct{}

func (SetStep) actionName() string          { return "set_step" }
func (SetDocument) actionName() string      { return "set_document" }
func (UpdateProgress) actionName() string   { return "update_progress" }
func (SetStageStatus) actionName() string   { return "set_stage_status" }
func (SetMetadata) actionName() string      { return "set_metadata" }
func (SetRoutingResult) actionName() string { return "set_routing_result" }
func (SetFinalResult) actionName() string   { return "set_final_result" }
func (Reset) actionName() string            { return "reset" }

// Reduce applies action to state and returns the new state. The input state
// is never modified. A rejected action returns the input state and an error.
func Reduce(state State, action Action) (State, error) {
	next := state.clone()
	switch a := action.(type) {
	case SetStep:
		if !a.Step.Valid() {
			return state, fmt.Errorf("set_step: unknown step %q", a.Step)
		}
		next.Step = a.Step
	case SetDocument:
		if a.Document.ID == "" {
			return state, fmt.Errorf("set_document: document id required")
		}
		doc := a.Document
		next = Initial(state.Reference)
		next.Document = &doc
		next.RunID = a.RunID
		next.Step = StepProcessing
	case UpdateProgress:
		percent := min(max(a.Progress.Percent, 0), 100)
		next.Progress = a.Progress
		next.Progress.Percent = percent
	case SetStageStatus:
		stages, err := applyStage(next.Stages, a.Result)
		if err != nil {
			return state, err
		}
		next.Stages = stages
	case SetMetadata:
		md := a.Metadata.Clone()
		next.Metadata = &md
	case SetRoutingResult:
		if state.Routing != nil {
			return state, fmt.Errorf("set_routing_result: routing already decided for run %s", state.RunID)
		}
		decision := a.Decision
		next.Routing = &decision
	case SetFinalResult:
		record := a.Record
		next.Final = &record
		next.Step = StepComplete
	case Reset:
		next = Initial(state.Reference)
	case nil:
		return state, fmt.Errorf("nil action")
	default:
		return state, fmt.Errorf("unsupported action %s", action.actionName())
	}
	return next, nil
}

// applyStage enforces ordering: a new stage must follow the last recorded one
// in pipeline order, only the last stage may be updated, and a terminal stage
// is never reopened.
func applyStage(stages []intake.StageResult, result intake.StageResult) ([]intake.StageResult, error) {
	if !result.Name.Valid() {
		return nil, fmt.Errorf("set_stage_status: unknown stage %q", result.Name)
	}
	if len(stages) == 0 {
		return append(stages, result), nil
	}

	lastIdx := len(stages) - 1
	last := stages[lastIdx]
	if last.Name == result.Name {
		if last.Status.Terminal() {
			return nil, fmt.Errorf("set_stage_status: stage %s already %s", result.Name, last.Status)
		}
		stages[lastIdx] = result
		return stages, nil
	}

	if result.Name.Step() <= last.Name.Step() {
		return nil, fmt.Errorf("set_stage_status: stage %s cannot follow %s", result.Name, last.Name)
	}
	if last.Status != intake.StatusCompleted {
		return nil, fmt.Errorf("set_stage_status: run halted at %s (%s)", last.Name, last.Status)
	}
	return append(stages, result), nil
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/runstate"
	"docintake/internal/services"
)

// settleFunc derives the terminal status and detail from a stage output. A nil
// settleFunc marks the stage completed.
type settleFunc[T intake.StageOutput] func(T) (intake.StageStatus, string)

type stageOutcome[T intake.StageOutput] struct {
	out T
	err error
}

// runStage executes one stage: it reports the processing transition, runs fn
// under the stage timeout, records the terminal StageResult, and translates a
// failure into the error taxonomy. The stage is detached from the caller's
// cancellation so that in-flight work finishes; cancellation is observed
// between stages.
func runStage[T intake.StageOutput](ctx context.Context, r *run, name intake.StageName, fn func(context.Context) (T, error), settle settleFunc[T]) (T, error) {
	var zero T
	stageCtx := services.WithStage(ctx, string(name))
	logger := logging.WithContext(stageCtx, r.o.logger)

	started := r.o.now()
	r.transition(intake.StageResult{Name: name, Status: intake.StatusProcessing, StartedAt: started})
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	timeout := stageTimeout(r, name)
	execCtx := context.WithoutCancel(stageCtx)
	var cancel context.CancelFunc
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(execCtx, timeout)
	} else {
		execCtx, cancel = context.WithCancel(execCtx)
	}
	defer cancel()

	done := make(chan stageOutcome[T], 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- stageOutcome[T]{err: fmt.Errorf("stage panicked: %v", rec)}
			}
		}()
		out, err := fn(execCtx)
		done <- stageOutcome[T]{out: out, err: err}
	}()

	var outcome stageOutcome[T]
	timedOut := false
	select {
	case outcome = <-done:
		timedOut = outcome.err != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded)
	case <-execCtx.Done():
		timedOut = true
		outcome.err = execCtx.Err()
	}
	finished := r.o.now()

	if outcome.err != nil {
		err := classifyStageError(name, outcome.err, timedOut, timeout)
		details := services.Details(err)
		r.transition(intake.StageResult{
			Name:        name,
			Status:      intake.StatusError,
			Detail:      strings.TrimSpace(outcome.err.Error()),
			ErrorKind:   string(details.Kind),
			StartedAt:   started,
			CompletedAt: finished,
		})
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.Bool("timed_out", timedOut),
			logging.Duration("stage_duration", finished.Sub(started)),
			logging.String(logging.FieldErrorHint, stageHint(name, timedOut)),
			logging.Error(outcome.err),
		)
		return zero, err
	}

	status, detail := intake.StatusCompleted, ""
	if settle != nil {
		status, detail = settle(outcome.out)
	}
	r.transition(intake.StageResult{
		Name:        name,
		Status:      status,
		Output:      outcome.out,
		Detail:      detail,
		StartedAt:   started,
		CompletedAt: finished,
	})

	eventType := "stage_complete"
	if status == intake.StatusBlocked {
		eventType = "stage_blocked"
	}
	logger.Info("stage finished",
		logging.String(logging.FieldEventType, eventType),
		logging.String("stage_status", string(status)),
		logging.Duration("stage_duration", finished.Sub(started)),
	)
	return outcome.out, nil
}

// stageTimeout is the budget runStage enforces. ConflictValidation applies its
// own budget so that an overrun completes the stage instead of failing it.
func stageTimeout(r *run, name intake.StageName) time.Duration {
	if name == intake.StageConflictValidation {
		return 0
	}
	return r.o.cfg.StageTimeout(string(name))
}

// classifyStageError maps a stage failure onto the taxonomy. OCR failures are
// fatal. A DuplicateCheck timeout is fatal because the run cannot proceed
// without a verdict. Everything else is transient.
func classifyStageError(name intake.StageName, err error, timedOut bool, timeout time.Duration) error {
	marker := services.ErrStageTransient
	if name == intake.StageOCR || (name == intake.StageDuplicateCheck && timedOut) {
		marker = services.ErrStageFatal
	}
	if timedOut {
		err = services.Wrap(services.ErrTimeout, string(name), "execute",
			fmt.Sprintf("exceeded %s", timeout), err)
		return services.Wrap(marker, string(name), "execute", "stage timed out", err)
	}
	return services.Wrap(marker, string(name), "execute", "stage failed", err)
}

func stageHint(name intake.StageName, timedOut bool) string {
	switch {
	case timedOut:
		return fmt.Sprintf("raise pipeline.timeouts.%s or check the executor", name)
	case name == intake.StageOCR:
		return "check the OCR engine configuration and the document readability"
	default:
		return "retry the run"
	}
}

// transition records result in the run audit, the state store, and the
// callbacks. Results for the same stage replace the previous entry.
func (r *run) transition(result intake.StageResult) {
	stages := r.record.Stages
	if n := len(stages); n > 0 && stages[n-1].Name == result.Name {
		stages[n-1] = result
	} else {
		stages = append(stages, result)
	}
	r.record.Stages = stages

	r.o.dispatch(runstate.SetStageStatus{Result: result})
	r.o.dispatch(runstate.UpdateProgress{Progress: runstate.Progress{
		Stage:   result.Name,
		Percent: progressPercent(result),
		Message: fmt.Sprintf("%s %s", result.Name, result.Status),
	}})
	r.o.emit(StageEvent{
		RunID:      r.record.ID,
		DocumentID: r.record.DocumentID,
		Stage:      result.Name,
		Status:     result.Status,
		Detail:     result.Detail,
	})
}

func progressPercent(result intake.StageResult) int {
	total := len(intake.Stages())
	done := result.Name.Step() - 1
	if result.Status.Terminal() {
		done++
	}
	return done * 100 / total
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"docintake/internal/duplicates"
	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/runstate"
	"docintake/internal/services"
)

var (
	// errDecisionCancel ends a blocked run at the caller's request.
	errDecisionCancel = errors.New("cancelled by duplicate decision")

	errBlockWithoutMatches = errors.New("duplicate checker blocked without reporting a match")
)

type run struct {
	o      *Orchestrator
	doc    intake.Document
	opts   Options
	logger *slog.Logger
	record intake.RunRecord
	result Result
}

// Run executes the pipeline for doc. The returned Result is populated as far
// as the run got. The error is nil when the run completed, including runs
// whose routing was denied or failed (Result.Draft is set). Otherwise it
// carries one of the services taxonomy markers: ErrDuplicateConflict for a
// blocking duplicate, ErrStageFatal, ErrStageTransient, ErrRunActive,
// ErrValidation, or the context error when the run was cancelled.
func (o *Orchestrator) Run(ctx context.Context, doc intake.Document, opts Options) (Result, error) {
	if err := o.validate(doc, opts); err != nil {
		return Result{}, err
	}
	release, err := o.locks.acquire(doc.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	runID := uuid.NewString()
	ctx = services.WithRunID(services.WithDocumentID(ctx, doc.ID), runID)
	r := &run{
		o:      o,
		doc:    doc,
		opts:   opts,
		logger: logging.WithContext(ctx, o.logger),
		record: intake.RunRecord{
			ID:         runID,
			DocumentID: doc.ID,
			Actor:      opts.Actor.UserID,
			Status:     intake.RunRunning,
			Stages:     []intake.StageResult{},
			StartedAt:  o.now(),
		},
		result: Result{Conflicts: []intake.Conflict{}},
	}

	o.dispatch(runstate.SetDocument{Document: doc, RunID: runID})
	r.save(ctx)
	r.logger.Info("intake run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("document_name", doc.Name),
		logging.String("mime_type", doc.MimeType),
		logging.Int64("size_bytes", doc.SizeBytes),
		logging.String("duplicate_decision", string(opts.DuplicateDecision)),
	)

	r.announce()
	runErr := r.execute(ctx)
	return r.finish(ctx, runErr)
}

// announce reports every stage as pending before the first one starts.
// Pending stages are not part of the run audit.
func (r *run) announce() {
	for _, name := range intake.Stages() {
		r.o.emit(StageEvent{
			RunID:      r.record.ID,
			DocumentID: r.record.DocumentID,
			Stage:      name,
			Status:     intake.StatusPending,
		})
	}
}

func (o *Orchestrator) validate(doc intake.Document, opts Options) error {
	switch {
	case strings.TrimSpace(doc.ID) == "":
		return services.Wrap(services.ErrValidation, "workflow", "start run", "document id required", nil)
	case len(doc.Content) == 0:
		return services.Wrap(services.ErrValidation, "workflow", "start run", "document content is empty", nil)
	case !opts.DuplicateDecision.Valid():
		return services.Wrap(services.ErrValidation, "workflow", "start run",
			fmt.Sprintf("unknown duplicate decision %q", opts.DuplicateDecision), nil)
	}
	set := o.stages
	if set.Denoiser == nil || set.Recognizer == nil || set.Duplicates == nil ||
		set.Suggester == nil || set.Validator == nil || set.Watermarker == nil || o.router == nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "start run", "stage set incomplete", nil)
	}
	return nil
}

func (r *run) execute(ctx context.Context) error {
	set := r.o.stages

	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := runStage(ctx, r, intake.StageDenoise, func(c context.Context) (intake.DenoiseOutput, error) {
		return set.Denoiser.Denoise(c, r.doc)
	}, nil)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	text, err := runStage(ctx, r, intake.StageOCR, func(c context.Context) (intake.OCROutput, error) {
		return set.Recognizer.Recognize(c, r.doc, cleaned)
	}, nil)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	verdict, err := runStage(ctx, r, intake.StageDuplicateCheck, func(c context.Context) (intake.DuplicateVerdict, error) {
		v, err := set.Duplicates.Check(c, r.doc, cleaned, text.Text)
		if err != nil {
			return v, err
		}
		if v.Blocking && len(v.Matches) == 0 {
			return intake.DuplicateVerdict{}, errBlockWithoutMatches
		}
		return duplicates.ApplyDecision(v, r.opts.DuplicateDecision), nil
	}, settleDuplicates)
	if err != nil {
		return err
	}
	if verdict.Blocking {
		block := verdict
		r.result.DuplicateBlock = &block
		if r.opts.DuplicateDecision == intake.DecisionCancel {
			return errDecisionCancel
		}
		return services.WithHint(services.Wrap(services.ErrDuplicateConflict, string(intake.StageDuplicateCheck), "evaluate",
			describeBlock(verdict), nil),
			"re-run with duplicate decision cancel, new_version, or proceed")
	}
	r.result.Duplicates = verdict.Matches

	if err := ctx.Err(); err != nil {
		return err
	}
	suggestion, err := runStage(ctx, r, intake.StageMetadataSuggestion, func(c context.Context) (intake.SuggestionOutput, error) {
		return set.Suggester.Suggest(c, r.doc, text.Text)
	}, nil)
	if err != nil {
		return err
	}
	r.result.MissingFields = suggestion.MissingFields
	r.o.dispatch(runstate.SetMetadata{Metadata: suggestion.Metadata})

	if err := ctx.Err(); err != nil {
		return err
	}
	report, err := runStage(ctx, r, intake.StageConflictValidation, func(context.Context) (intake.ValidationReport, error) {
		return r.validateWithin(set.Validator, suggestion.KeyValues), nil
	}, settleConflicts)
	if err != nil {
		return err
	}
	r.result.Conflicts = report.Conflicts
	if len(report.Conflicts) > 0 {
		r.logger.Info("data conflicts found",
			logging.String(logging.FieldEventType, "data_conflict"),
			logging.String(logging.FieldErrorKind, string(services.KindDataConflict)),
			logging.Int("conflicts", len(report.Conflicts)),
		)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	stamped, err := runStage(ctx, r, intake.StageWatermark, func(c context.Context) (intake.WatermarkOutput, error) {
		return set.Watermarker.Watermark(c, r.doc, cleaned)
	}, nil)
	if err != nil {
		return err
	}
	r.result.Watermark = &stamped

	return r.finalize(ctx, suggestion.Metadata, text, verdict)
}

// validateWithin bounds validation by the conflict_validation timeout. An
// overrun settles as an empty report; the rule evaluation is abandoned.
func (r *run) validateWithin(v ConflictValidator, values intake.KeyValueSet) intake.ValidationReport {
	budget := r.o.cfg.StageTimeout(string(intake.StageConflictValidation))
	if budget <= 0 {
		return r.validateSafely(v, values)
	}
	done := make(chan intake.ValidationReport, 1)
	go func() {
		done <- r.validateSafely(v, values)
	}()
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case report := <-done:
		return report
	case <-timer.C:
		logging.WarnWithContext(r.logger, "conflict validation timed out", "validation_timeout",
			logging.Duration("timeout", budget),
			logging.String(logging.FieldErrorHint, "raise pipeline.timeouts.conflict_validation"),
			logging.String(logging.FieldImpact, "data conflicts were not checked"),
		)
		return intake.ValidationReport{Conflicts: []intake.Conflict{}}
	}
}

// validateSafely never fails the stage: a broken rule set yields an empty
// report and a warning.
func (r *run) validateSafely(v ConflictValidator, values intake.KeyValueSet) (report intake.ValidationReport) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.WarnWithContext(r.logger, "conflict validation aborted", "validation_failure",
				logging.String("panic", fmt.Sprint(rec)),
				logging.String(logging.FieldImpact, "data conflicts were not checked"),
			)
			report = intake.ValidationReport{Conflicts: []intake.Conflict{}}
		}
	}()
	report = v.Report(values)
	if report.Conflicts == nil {
		report.Conflicts = []intake.Conflict{}
	}
	return report
}

func describeBlock(v intake.DuplicateVerdict) string {
	if len(v.Matches) == 0 {
		return "blocking duplicate"
	}
	best := v.Matches[0]
	return fmt.Sprintf("%.1f%% similar to %s (%s)", best.SimilarityPercent, best.Name, best.DocumentID)
}

func settleDuplicates(v intake.DuplicateVerdict) (intake.StageStatus, string) {
	if v.Blocking {
		if len(v.Matches) == 0 {
			return intake.StatusBlocked, "blocked without matches"
		}
		return intake.StatusBlocked, fmt.Sprintf("%d match(es), best %.1f%%", len(v.Matches), v.Matches[0].SimilarityPercent)
	}
	if len(v.Matches) > 0 {
		return intake.StatusCompleted, fmt.Sprintf("%d possible duplicate(s)", len(v.Matches))
	}
	return intake.StatusCompleted, ""
}

func settleConflicts(report intake.ValidationReport) (intake.StageStatus, string) {
	if n := len(report.Conflicts); n > 0 {
		return intake.StatusCompleted, fmt.Sprintf("%d warning(s)", n)
	}
	return intake.StatusCompleted, ""
}

// finish resolves the run status, updates state, persists the audit, and
// returns the result.
func (r *run) finish(ctx context.Context, runErr error) (Result, error) {
	r.record.FinishedAt = r.o.now()
	outErr := runErr

	switch {
	case runErr == nil:
		r.record.Status = intake.RunCompleted
	case errors.Is(runErr, errDecisionCancel):
		r.record.Status = intake.RunCancelled
		outErr = nil
	case ctx.Err() != nil && errors.Is(runErr, ctx.Err()):
		r.record.Status = intake.RunCancelled
		r.record.ErrorKind = string(services.KindOf(runErr))
		r.record.ErrorText = runErr.Error()
	case errors.Is(runErr, services.ErrDuplicateConflict):
		r.record.Status = intake.RunBlocked
		r.record.ErrorKind = string(services.KindDuplicateConflict)
		r.record.ErrorText = runErr.Error()
	default:
		r.record.Status = intake.RunFailed
		r.record.ErrorKind = string(services.KindOf(runErr))
		r.record.ErrorText = runErr.Error()
	}

	if errors.Is(runErr, services.ErrStageFatal) {
		r.o.dispatch(runstate.Reset{})
	} else {
		r.o.dispatch(runstate.SetFinalResult{Record: r.record})
	}
	r.save(ctx)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_finished"),
		logging.String("run_status", string(r.record.Status)),
		logging.Int("stages", len(r.record.Stages)),
		logging.Duration("run_duration", r.record.FinishedAt.Sub(r.record.StartedAt)),
	}
	if r.record.Status == intake.RunFailed {
		attrs = append(attrs, logging.String(logging.FieldErrorKind, r.record.ErrorKind), logging.Error(runErr))
		logging.ErrorWithContext(r.logger, "intake run failed", "run_failure", attrs...)
		notifyCtx := context.WithoutCancel(ctx)
		if err := r.o.dispatcher.NotifyRunFailed(notifyCtx, r.doc.Name, runErr); err != nil {
			r.logger.Debug("run failure notification failed", logging.Error(err))
		}
	} else {
		r.logger.Info("intake run finished", logging.Args(attrs...)...)
	}

	r.result.Run = r.record
	return r.result, outErr
}

func (r *run) save(ctx context.Context) {
	if r.o.recorder == nil {
		return
	}
	if err := r.o.recorder.SaveRun(context.WithoutCancel(ctx), r.record); err != nil {
		logging.WarnWithContext(r.logger, "failed to persist run audit", "run_persist_failure",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

package workflow

import (
	"context"
	"errors"

	"docintake/internal/fileutil"
	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/routing"
	"docintake/internal/runstate"
	"docintake/internal/services"
	"docintake/internal/suggestion"
	"docintake/internal/textutil"
)

// finalize settles metadata, evaluates routing once, registers the document,
// and delivers notifications. Routing denials and failures leave the document
// saved as a draft and do not fail the run.
func (r *run) finalize(ctx context.Context, suggested intake.Metadata, text intake.OCROutput, verdict intake.DuplicateVerdict) error {
	metadata := suggested.Clone()
	if r.opts.Review != nil {
		r.o.dispatch(runstate.SetStep{Step: runstate.StepReview})
		reviewed, err := r.opts.Review(ctx, metadata.Clone(), r.result.Conflicts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return services.Wrap(services.ErrStageTransient, "review", "review metadata", "metadata review failed", err)
		}
		metadata = suggestion.Derive(reviewed.Clone())
		r.o.dispatch(runstate.SetMetadata{Metadata: metadata})
	}
	if metadata.OwnerDepartment == "" {
		metadata.OwnerDepartment = r.doc.OwnerDepartment
	}
	r.result.Metadata = &metadata
	r.record.Metadata = &metadata

	decision := r.o.router.Evaluate(metadata, r.opts.Actor)

	if err := r.register(ctx, metadata, text, verdict, decision); err != nil {
		r.setRouting(decision)
		return err
	}

	if decision.Success && len(decision.Notifications) > 0 {
		sent, err := r.o.dispatcher.Dispatch(context.WithoutCancel(ctx), decision.Notifications)
		decision.Notifications = sent
		if err != nil {
			logging.WarnWithContext(r.logger, "routing notifications not fully delivered", "notification_failure",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some recipients must be informed manually"),
			)
		}
	}
	r.setRouting(decision)

	if routeErr := routing.DecisionError(decision); routeErr != nil {
		r.result.Draft = true
		logging.WarnWithContext(r.logger, "document saved as draft", "routing_draft",
			logging.String(logging.FieldErrorKind, string(services.KindOf(routeErr))),
			logging.String("routing_error", decision.Error),
			logging.String("routing_detail", decision.Detail),
			logging.String(logging.FieldErrorHint, "distribute the document manually or retry routing"),
			logging.String(logging.FieldImpact, "automated distribution did not happen"),
		)
	}
	return nil
}

func (r *run) setRouting(decision intake.RoutingDecision) {
	r.result.Routing = &decision
	r.record.Routing = &decision
	r.o.dispatch(runstate.SetRoutingResult{Decision: decision})
}

// register stores the accepted document so later uploads are checked against
// it. A new_version decision links it to the best duplicate match.
func (r *run) register(ctx context.Context, metadata intake.Metadata, text intake.OCROutput, verdict intake.DuplicateVerdict, decision intake.RoutingDecision) error {
	if r.o.registrar == nil {
		return nil
	}
	stored := intake.StoredDocument{
		Name:        r.doc.Name,
		ContentHash: fileutil.HashBytes(r.doc.Content),
		Text:        text.Text,
		Fingerprint: textutil.NewFingerprint(text.Text).Encode(),
		Owner:       r.doc.Owner,
		Department:  metadata.OwnerDepartment,
		Path:        decision.TargetFolder,
		Category:    metadata.Category,
	}

	storeCtx := context.WithoutCancel(ctx)
	var err error
	if r.opts.DuplicateDecision == intake.DecisionNewVersion && len(verdict.Matches) > 0 {
		err = r.o.registrar.CreateVersion(storeCtx, verdict.Matches[0].DocumentID, &stored)
	} else {
		err = r.o.registrar.CreateDocument(storeCtx, &stored)
	}
	if err != nil {
		return services.Wrap(services.ErrStageTransient, "register", "save document", "document could not be saved", err)
	}
	r.result.StoredDocumentID = stored.ID
	r.logger.Info("document registered",
		logging.String(logging.FieldEventType, "document_registered"),
		logging.String("stored_document_id", stored.ID),
		logging.Int("version", stored.Version),
	)
	return nil
}

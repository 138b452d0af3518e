package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"docintake/internal/fileutil"
	"docintake/internal/intake"
	"docintake/internal/runstate"
	"docintake/internal/services"
	"docintake/internal/testsupport"
	"docintake/internal/workflow"
)

func TestRunCompletesAndRoutesUrgentFinanceReport(t *testing.T) {
	h := newHarness(t)
	doc := testsupport.TextDocument("doc-finance", "bao-cao-q1.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Run.Status != intake.RunCompleted {
		t.Fatalf("status = %s", result.Run.Status)
	}
	if diff := cmp.Diff(intake.Stages(), stageNames(result.Run.Stages)); diff != "" {
		t.Fatalf("stage order mismatch (-want +got):\n%s", diff)
	}
	for _, st := range result.Run.Stages {
		if st.Status != intake.StatusCompleted {
			t.Fatalf("stage %s status = %s", st.Name, st.Status)
		}
	}

	if result.Metadata == nil || result.Metadata.Category != intake.CategoryFinanceReport {
		t.Fatalf("unexpected metadata: %+v", result.Metadata)
	}
	if !result.Metadata.HasTag("khẩn") {
		t.Fatalf("tags = %v, want khẩn", result.Metadata.Tags)
	}
	decision := result.Routing
	if decision == nil || !decision.Triggered || decision.Workflow == nil || decision.Workflow.ID != "WF-FINANCE-03" {
		t.Fatalf("unexpected routing: %+v", decision)
	}
	urgent := false
	for _, note := range decision.Notifications {
		if !note.Sent {
			t.Fatalf("notification not marked sent: %+v", note)
		}
		if strings.Contains(note.Message, "KHẨN") {
			urgent = true
		}
	}
	if !urgent {
		t.Fatalf("no notification marked urgent: %+v", decision.Notifications)
	}
	if result.Draft {
		t.Fatal("successful routing must not be a draft")
	}

	stored, err := h.store.GetDocument(context.Background(), result.StoredDocumentID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if stored.ContentHash != fileutil.HashBytes(doc.Content) || stored.Category != intake.CategoryFinanceReport {
		t.Fatalf("unexpected stored document: %+v", stored)
	}

	runs, err := h.store.ListRuns(context.Background(), doc.ID, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != intake.RunCompleted || len(runs[0].Stages) != 6 {
		t.Fatalf("unexpected run audit: %+v", runs)
	}

	events := h.recordedEvents()
	if len(events) != 18 {
		t.Fatalf("events = %d, want 18", len(events))
	}
	for i, name := range intake.Stages() {
		if events[i].Stage != name || events[i].Status != intake.StatusPending {
			t.Fatalf("event %d = %+v, want %s pending", i, events[i], name)
		}
	}
	if events[6].Status != intake.StatusProcessing || events[7].Status != intake.StatusCompleted {
		t.Fatalf("unexpected first transitions: %+v", events[6:8])
	}

	state := h.state.State()
	if state.Step != runstate.StepComplete || state.Routing == nil || state.Final == nil {
		t.Fatalf("unexpected state: step=%s routing=%v final=%v", state.Step, state.Routing, state.Final)
	}
}

func TestRunBlocksOnDuplicateAndHonoursDecisions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := testsupport.TextDocument("doc-contract", "hop-dong.txt", testsupport.ContractText)

	original := intake.StoredDocument{
		Name:        "hop-dong-cu.txt",
		ContentHash: fileutil.HashBytes(doc.Content),
		Owner:       "le.van.c",
		Path:        "/documents/hop-dong",
	}
	if err := h.store.CreateDocument(ctx, &original); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	o := h.orchestrator()

	result, err := o.Run(ctx, doc, workflow.Options{Actor: financeActor()})
	if !errors.Is(err, services.ErrDuplicateConflict) {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}
	if result.Run.Status != intake.RunBlocked {
		t.Fatalf("status = %s, want blocked", result.Run.Status)
	}
	want := []intake.StageName{intake.StageDenoise, intake.StageOCR, intake.StageDuplicateCheck}
	if diff := cmp.Diff(want, stageNames(result.Run.Stages)); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if got := result.Run.Stages[2].Status; got != intake.StatusBlocked {
		t.Fatalf("duplicate stage status = %s", got)
	}
	block := result.DuplicateBlock
	if block == nil || len(block.Matches) != 1 || block.Matches[0].SimilarityPercent != 100 || block.Matches[0].DocumentID != original.ID {
		t.Fatalf("unexpected duplicate block: %+v", block)
	}
	if result.Routing != nil {
		t.Fatal("routing must not run for a blocked document")
	}

	cancelled, err := o.Run(ctx, doc, workflow.Options{Actor: financeActor(), DuplicateDecision: intake.DecisionCancel})
	if err != nil {
		t.Fatalf("cancel decision: %v", err)
	}
	if cancelled.Run.Status != intake.RunCancelled || len(cancelled.Run.Stages) != 3 {
		t.Fatalf("unexpected cancelled run: %+v", cancelled.Run)
	}

	versioned, err := o.Run(ctx, doc, workflow.Options{Actor: financeActor(), DuplicateDecision: intake.DecisionNewVersion})
	if err != nil {
		t.Fatalf("new_version decision: %v", err)
	}
	if versioned.Run.Status != intake.RunCompleted {
		t.Fatalf("status = %s", versioned.Run.Status)
	}
	if len(versioned.Duplicates) != 1 || versioned.Duplicates[0].Severity != intake.SeverityWarning {
		t.Fatalf("expected downgraded match, got %+v", versioned.Duplicates)
	}
	child, err := h.store.GetDocument(ctx, versioned.StoredDocumentID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if child.ParentID != original.ID || child.Version != 2 {
		t.Fatalf("unexpected version: %+v", child)
	}
	if versioned.Routing == nil || versioned.Routing.Workflow == nil || versioned.Routing.Workflow.ID != "WF-CONTRACT-01" {
		t.Fatalf("unexpected routing: %+v", versioned.Routing)
	}
}

func TestRunOCRFailureIsFatalAndResetsState(t *testing.T) {
	h := newHarness(t)
	h.stages.Recognizer = failingRecognizer{err: errors.New("engine crashed")}
	doc := testsupport.TextDocument("doc-ocr", "scan.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if !errors.Is(err, services.ErrStageFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if services.KindOf(err) != services.KindStageFatal {
		t.Fatalf("kind = %s", services.KindOf(err))
	}
	if result.Run.Status != intake.RunFailed || result.Run.ErrorKind != string(services.KindStageFatal) {
		t.Fatalf("unexpected run: %+v", result.Run)
	}
	last := result.Run.Stages[len(result.Run.Stages)-1]
	if last.Name != intake.StageOCR || last.Status != intake.StatusError {
		t.Fatalf("unexpected last stage: %+v", last)
	}

	state := h.state.State()
	if state.Step != runstate.StepSelect || state.Document != nil || len(state.Stages) != 0 {
		t.Fatalf("state not reset: %+v", state)
	}
	if len(state.Reference.Categories) == 0 {
		t.Fatal("reset dropped reference data")
	}
	if h.dispatcher.failures() != 1 {
		t.Fatalf("failure notifications = %d", h.dispatcher.failures())
	}
}

func TestRunOtherStageFailureIsTransient(t *testing.T) {
	h := newHarness(t)
	h.stages.Watermarker = failingWatermarker{err: errors.New("disk full")}
	doc := testsupport.TextDocument("doc-wm", "a.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if !errors.Is(err, services.ErrStageTransient) || !services.Retryable(err) {
		t.Fatalf("expected retryable transient error, got %v", err)
	}
	if len(result.Run.Stages) != 6 || result.Run.Stages[5].Status != intake.StatusError {
		t.Fatalf("unexpected stages: %+v", result.Run.Stages)
	}
	if result.Routing != nil {
		t.Fatal("routing must not run after a failed stage")
	}
	state := h.state.State()
	if state.Final == nil || state.Final.Status != intake.RunFailed || len(state.Stages) != 6 {
		t.Fatalf("unexpected state after transient failure: %+v", state)
	}
}

func TestRunDuplicateCheckTimeoutIsFatal(t *testing.T) {
	h := newHarness(t, testsupport.WithStageTimeout("duplicate_check", 1))
	h.stages.Duplicates = hangingChecker{}
	doc := testsupport.TextDocument("doc-timeout", "a.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if !errors.Is(err, services.ErrStageFatal) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected fatal timeout, got %v", err)
	}
	if len(result.Run.Stages) != 3 || result.Run.Stages[2].Status != intake.StatusError {
		t.Fatalf("unexpected stages: %+v", result.Run.Stages)
	}
}

func TestRunBlockingVerdictWithoutMatchesIsTransient(t *testing.T) {
	h := newHarness(t)
	h.stages.Duplicates = matchlessBlockingChecker{}
	doc := testsupport.TextDocument("doc-matchless", "a.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if !errors.Is(err, services.ErrStageTransient) {
		t.Fatalf("expected transient stage error, got %v", err)
	}
	if result.Run.Status != intake.RunFailed || result.DuplicateBlock != nil {
		t.Fatalf("unexpected result: status=%s block=%+v", result.Run.Status, result.DuplicateBlock)
	}
	if len(result.Run.Stages) != 3 || result.Run.Stages[2].Status != intake.StatusError {
		t.Fatalf("unexpected stages: %+v", result.Run.Stages)
	}

	saved, err := h.store.GetRun(context.Background(), result.Run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if saved.Status != intake.RunFailed {
		t.Fatalf("persisted status = %s", saved.Status)
	}
}

func TestRunConflictValidationTimeoutCompletesStage(t *testing.T) {
	h := newHarness(t, testsupport.WithStageTimeout("conflict_validation", 1))
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	h.stages.Validator = stalledValidator{release: release}
	doc := testsupport.TextDocument("doc-slow-rules", "a.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Run.Status != intake.RunCompleted || len(result.Run.Stages) != 6 {
		t.Fatalf("unexpected run: %+v", result.Run)
	}
	if got := result.Run.Stages[4]; got.Name != intake.StageConflictValidation || got.Status != intake.StatusCompleted {
		t.Fatalf("unexpected validation stage: %+v", got)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts after timeout, got %+v", result.Conflicts)
	}
}

func TestRunRejectsSecondRunForSameDocument(t *testing.T) {
	h := newHarness(t)
	gate := &gatedDenoiser{next: h.stages.Denoiser, entered: make(chan struct{}), release: make(chan struct{})}
	h.stages.Denoiser = gate
	o := h.orchestrator()
	doc := testsupport.TextDocument("doc-busy", "a.txt", financeText)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
		done <- err
	}()
	<-gate.entered

	if !o.Active(doc.ID) {
		t.Fatal("expected document to be active")
	}
	if _, err := o.Run(context.Background(), doc, workflow.Options{Actor: financeActor()}); !errors.Is(err, services.ErrRunActive) {
		t.Fatalf("expected run active error, got %v", err)
	}
	close(gate.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("first run did not finish")
	}
	if o.Active(doc.ID) {
		t.Fatal("lock not released")
	}
}

func TestRunCancellationSkipsRemainingStages(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.stages.Recognizer = cancellingRecognizer{next: h.stages.Recognizer, cancel: cancel}
	doc := testsupport.TextDocument("doc-cancel", "a.txt", financeText)

	result, err := h.orchestrator().Run(ctx, doc, workflow.Options{Actor: financeActor()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Run.Status != intake.RunCancelled {
		t.Fatalf("status = %s", result.Run.Status)
	}
	if len(result.Run.Stages) != 2 || result.Run.Stages[1].Status != intake.StatusCompleted {
		t.Fatalf("completed stages must be kept: %+v", result.Run.Stages)
	}

	saved, err := h.store.GetRun(context.Background(), result.Run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if saved.Status != intake.RunCancelled {
		t.Fatalf("persisted status = %s", saved.Status)
	}
}

func TestRunWithoutPermissionSavesDraft(t *testing.T) {
	h := newHarness(t)
	actor := financeActor()
	actor.Permissions = nil
	doc := testsupport.TextDocument("doc-draft", "a.txt", financeText)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: actor})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Draft || result.StoredDocumentID == "" {
		t.Fatalf("expected saved draft, got draft=%v id=%q", result.Draft, result.StoredDocumentID)
	}
	if result.Routing == nil || result.Routing.Success || result.Routing.Error != intake.RoutingInsufficientPermissions {
		t.Fatalf("unexpected routing: %+v", result.Routing)
	}
	if len(h.dispatcher.batches) != 0 {
		t.Fatal("denied routing must not dispatch notifications")
	}
}

func TestRunReviewHookEditsMetadataBeforeRouting(t *testing.T) {
	h := newHarness(t)
	doc := testsupport.TextDocument("doc-review", "a.txt", financeText)
	var seenConflicts []intake.Conflict
	review := func(_ context.Context, suggested intake.Metadata, conflicts []intake.Conflict) (intake.Metadata, error) {
		seenConflicts = conflicts
		suggested.Category = intake.CategoryContract
		return suggested, nil
	}

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor(), Review: review})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seenConflicts == nil {
		t.Fatal("review hook not called with conflicts")
	}
	if result.Routing == nil || result.Routing.Workflow == nil || result.Routing.Workflow.ID != "WF-CONTRACT-01" {
		t.Fatalf("unexpected routing: %+v", result.Routing)
	}
}

func TestRunReviewHookUrgencyChangeUpdatesTags(t *testing.T) {
	h := newHarness(t)
	body := strings.Replace(financeText, "Độ khẩn: Khẩn\n", "", 1)
	doc := testsupport.TextDocument("doc-escalate", "a.txt", body)
	review := func(_ context.Context, suggested intake.Metadata, _ []intake.Conflict) (intake.Metadata, error) {
		suggested.Urgency = intake.UrgencyUrgent
		suggested.Security = intake.SecurityHigh
		return suggested, nil
	}

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor(), Review: review})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := result.Metadata
	if m == nil || !m.HasTag("khẩn") || !m.HasTag("mật") {
		t.Fatalf("expected derived tags, got %+v", m)
	}
	if m.AccessType != intake.AccessPrivate {
		t.Fatalf("access type = %q, want %q", m.AccessType, intake.AccessPrivate)
	}
}

func TestRunCollectsConflictsWithoutHalting(t *testing.T) {
	h := newHarness(t)
	body := strings.Replace(financeText, "Ngày ban hành: 10/04/2024", "Ngày ban hành: 10/04/2030\nSố lượng: -5", 1)
	doc := testsupport.TextDocument("doc-conflict", "a.txt", body)

	result, err := h.orchestrator().Run(context.Background(), doc, workflow.Options{Actor: financeActor()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fields := make([]string, 0, len(result.Conflicts))
	for _, c := range result.Conflicts {
		fields = append(fields, c.Field)
	}
	if diff := cmp.Diff([]string{intake.FieldQuantity, intake.FieldIssueDate}, fields); diff != "" {
		t.Fatalf("conflict fields mismatch (-want +got):\n%s", diff)
	}
	if result.Run.Status != intake.RunCompleted || result.Watermark == nil {
		t.Fatalf("run should complete through watermark: %+v", result.Run)
	}
}

func TestRunValidatesInput(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator()
	tests := []struct {
		name string
		doc  intake.Document
		opts workflow.Options
	}{
		{"missing id", intake.Document{Content: []byte("x")}, workflow.Options{}},
		{"empty content", intake.Document{ID: "d"}, workflow.Options{}},
		{"bad decision", intake.Document{ID: "d", Content: []byte("x")}, workflow.Options{DuplicateDecision: "merge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := o.Run(context.Background(), tt.doc, tt.opts); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

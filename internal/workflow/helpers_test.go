package workflow_test

import (
	"context"
	"sync"
	"testing"

	"docintake/internal/config"
	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/refdata"
	"docintake/internal/runstate"
	"docintake/internal/stage"
	"docintake/internal/store"
	"docintake/internal/testsupport"
	"docintake/internal/workflow"
)

const financeText = `BÁO CÁO TÀI CHÍNH QUÝ I NĂM 2024
Số hiệu: 05/2024/BC-TC
Ngày ban hành: 10/04/2024
Trích yếu: Báo cáo tài chính quý I
Độ khẩn: Khẩn
Doanh thu tăng 12% so với cùng kỳ.
`

type recordingDispatcher struct {
	mu      sync.Mutex
	batches [][]intake.Notification
	failed  []error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, batch []intake.Notification) ([]intake.Notification, error) {
	out := make([]intake.Notification, len(batch))
	for i, note := range batch {
		note.Sent = true
		out[i] = note
	}
	d.mu.Lock()
	d.batches = append(d.batches, out)
	d.mu.Unlock()
	return out, nil
}

func (d *recordingDispatcher) NotifyRunFailed(_ context.Context, _ string, err error) error {
	d.mu.Lock()
	d.failed = append(d.failed, err)
	d.mu.Unlock()
	return nil
}

func (d *recordingDispatcher) failures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.failed)
}

type harness struct {
	cfg        *config.Config
	store      *store.Store
	state      *runstate.Store
	dispatcher *recordingDispatcher
	stages     workflow.StageSet

	mu     sync.Mutex
	events []workflow.StageEvent
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	reference := refdata.Default()
	stages, err := workflow.BuildStages(cfg, reference, st, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildStages: %v", err)
	}
	return &harness{
		cfg:        cfg,
		store:      st,
		state:      runstate.NewStore(reference),
		dispatcher: &recordingDispatcher{},
		stages:     stages,
	}
}

func (h *harness) orchestrator() *workflow.Orchestrator {
	reference := refdata.Default()
	o := workflow.New(h.cfg, h.stages, workflow.BuildRouter(h.cfg, reference, logging.NewNop()), logging.NewNop(),
		workflow.WithRecorder(h.store),
		workflow.WithRegistrar(h.store),
		workflow.WithDispatcher(h.dispatcher),
		workflow.WithState(h.state),
	)
	o.OnStageChange(func(ev workflow.StageEvent) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})
	return o
}

func (h *harness) recordedEvents() []workflow.StageEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]workflow.StageEvent(nil), h.events...)
}

func financeActor() intake.ActorContext {
	return intake.ActorContext{
		UserID:      "tran.thi.b",
		Roles:       []string{"staff"},
		Department:  "HANH_CHINH",
		Permissions: []string{intake.PermissionDistribute},
	}
}

func stageNames(results []intake.StageResult) []intake.StageName {
	names := make([]intake.StageName, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	return names
}

type failingRecognizer struct{ err error }

func (f failingRecognizer) Recognize(context.Context, intake.Document, intake.DenoiseOutput) (intake.OCROutput, error) {
	return intake.OCROutput{}, f.err
}

type failingWatermarker struct{ err error }

func (f failingWatermarker) Watermark(context.Context, intake.Document, intake.DenoiseOutput) (intake.WatermarkOutput, error) {
	return intake.WatermarkOutput{}, f.err
}

// hangingChecker blocks until its context ends.
type hangingChecker struct{}

func (hangingChecker) Check(ctx context.Context, _ intake.Document, _ intake.DenoiseOutput, _ string) (intake.DuplicateVerdict, error) {
	<-ctx.Done()
	return intake.DuplicateVerdict{}, ctx.Err()
}

// gatedDenoiser signals entry and waits for release.
type gatedDenoiser struct {
	next    stage.Denoiser
	entered chan struct{}
	release chan struct{}
}

func (g *gatedDenoiser) Denoise(ctx context.Context, doc intake.Document) (intake.DenoiseOutput, error) {
	close(g.entered)
	<-g.release
	return g.next.Denoise(ctx, doc)
}

// cancellingRecognizer cancels the run context mid-stage and still succeeds.
type cancellingRecognizer struct {
	next   stage.Recognizer
	cancel context.CancelFunc
}

func (c cancellingRecognizer) Recognize(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput) (intake.OCROutput, error) {
	c.cancel()
	return c.next.Recognize(ctx, doc, cleaned)
}

// matchlessBlockingChecker reports a blocking duplicate without any match.
type matchlessBlockingChecker struct{}

func (matchlessBlockingChecker) Check(context.Context, intake.Document, intake.DenoiseOutput, string) (intake.DuplicateVerdict, error) {
	return intake.DuplicateVerdict{IsDuplicate: true, Blocking: true}, nil
}

// stalledValidator blocks until release is closed.
type stalledValidator struct{ release chan struct{} }

func (s stalledValidator) Report(intake.KeyValueSet) intake.ValidationReport {
	<-s.release
	return intake.ValidationReport{Conflicts: []intake.Conflict{{Field: intake.FieldQuantity}}}
}

package workflow

import (
	"context"

	"docintake/internal/intake"
	"docintake/internal/stage"
)

// StageSet bundles the executors the orchestrator runs.
type StageSet struct {
	Denoiser    stage.Denoiser
	Recognizer  stage.Recognizer
	Duplicates  stage.DuplicateChecker
	Suggester   stage.Suggester
	Validator   ConflictValidator
	Watermarker stage.Watermarker
}

// ConflictValidator evaluates the data-conflict rules. Implementations must be
// pure.
type ConflictValidator interface {
	Report(values intake.KeyValueSet) intake.ValidationReport
}

// Router computes the routing decision for finalized metadata.
type Router interface {
	Evaluate(metadata intake.Metadata, actor intake.ActorContext) intake.RoutingDecision
}

// RunRecorder persists the run audit.
type RunRecorder interface {
	SaveRun(ctx context.Context, record intake.RunRecord) error
}

// DocumentRegistrar adds accepted documents to the repository that backs
// duplicate detection.
type DocumentRegistrar interface {
	CreateDocument(ctx context.Context, doc *intake.StoredDocument) error
	CreateVersion(ctx context.Context, parentID string, doc *intake.StoredDocument) error
}

// ReviewFunc lets the caller edit the suggested metadata before routing. Tags
// and AccessType are recomputed from the reviewed urgency and security.
type ReviewFunc func(ctx context.Context, suggested intake.Metadata, conflicts []intake.Conflict) (intake.Metadata, error)

// Options are the per-run inputs besides the document.
type Options struct {
	Actor             intake.ActorContext
	DuplicateDecision intake.DuplicateDecision
	Review            ReviewFunc
}

// StageEvent is delivered to stage callbacks on every transition.
type StageEvent struct {
	RunID      string
	DocumentID string
	Stage      intake.StageName
	Status     intake.StageStatus
	Detail     string
}

// StageCallback observes stage transitions. Callbacks run synchronously on the
// run goroutine in registration order.
type StageCallback func(StageEvent)

// Result is the outcome of a run. It is populated as far as the run got, so
// a blocked or failed run still carries the completed stages.
type Result struct {
	Run              intake.RunRecord         `json:"run"`
	DuplicateBlock   *intake.DuplicateVerdict `json:"duplicate_block,omitempty"`
	Duplicates       []intake.DuplicateMatch  `json:"duplicates,omitempty"`
	Conflicts        []intake.Conflict        `json:"conflicts"`
	MissingFields    []string                 `json:"missing_fields,omitempty"`
	Metadata         *intake.Metadata         `json:"metadata,omitempty"`
	Routing          *intake.RoutingDecision  `json:"routing,omitempty"`
	Watermark        *intake.WatermarkOutput  `json:"watermark,omitempty"`
	StoredDocumentID string                   `json:"stored_document_id,omitempty"`
	// Draft is set when the document was saved but automated distribution did
	// not happen.
	Draft bool `json:"draft,omitempty"`
}

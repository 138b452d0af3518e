package intake

import "time"

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunBlocked   RunStatus = "blocked"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// DuplicateDecision is the caller's answer to a duplicate warning.
type DuplicateDecision string

const (
	DecisionNone       DuplicateDecision = ""
	DecisionCancel     DuplicateDecision = "cancel"
	DecisionNewVersion DuplicateDecision = "new_version"
	DecisionProceed    DuplicateDecision = "proceed"
)

// Valid reports whether d is a recognized decision.
func (d DuplicateDecision) Valid() bool {
	switch d {
	case DecisionNone, DecisionCancel, DecisionNewVersion, DecisionProceed:
		return true
	default:
		return false
	}
}

// Overrides reports whether the decision lets a blocking duplicate through.
func (d DuplicateDecision) Overrides() bool {
	return d == DecisionProceed || d == DecisionNewVersion
}

// RunRecord is the persisted audit of a pipeline run.
type RunRecord struct {
	ID         string           `json:"id"`
	DocumentID string           `json:"document_id"`
	Actor      string           `json:"actor,omitempty"`
	Status     RunStatus        `json:"status"`
	Stages     []StageResult    `json:"stages"`
	Metadata   *Metadata        `json:"metadata,omitempty"`
	Routing    *RoutingDecision `json:"routing,omitempty"`
	ErrorKind  string           `json:"error_kind,omitempty"`
	ErrorText  string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitzero"`
}

// StoredDocument is a previously ingested document indexed for duplicate
// detection.
type StoredDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentHash string    `json:"content_hash"`
	Text        string    `json:"-"`
	Fingerprint string    `json:"-"`
	Owner       string    `json:"owner,omitempty"`
	Department  string    `json:"department,omitempty"`
	Path        string    `json:"path,omitempty"`
	Category    string    `json:"category,omitempty"`
	Version     int       `json:"version"`
	ParentID    string    `json:"parent_id,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

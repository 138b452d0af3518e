package intake

// Routing actions.
const (
	ActionTriggerWorkflow      = "TRIGGER_WORKFLOW"
	ActionSecurityNotification = "SECURITY_NOTIFICATION"
	ActionAutoCategorization   = "AUTO_CATEGORIZATION"
)

// Routing error codes.
const (
	RoutingInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	RoutingAutoRouteFailed         = "AUTO_ROUTE_FAILED"
)

// Notification channels.
const (
	ChannelEmail  = "EMAIL"
	ChannelSystem = "SYSTEM"
)

// Priorities attached to routed workflows.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is a message the routing engine wants delivered.
type Notification struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
	Priority  string `json:"priority,omitempty"`
	Sent      bool   `json:"sent"`
}

// WorkflowRef names the downstream workflow a document is handed to.
type WorkflowRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CandidateGroup string `json:"candidate_group"`
	Approver       string `json:"approver,omitempty"`
}

// RoutingDecision is the outcome of evaluating the routing rules.
type RoutingDecision struct {
	Success       bool           `json:"success"`
	Triggered     bool           `json:"triggered"`
	Action        string         `json:"action,omitempty"`
	Rule          string         `json:"rule,omitempty"`
	Workflow      *WorkflowRef   `json:"workflow,omitempty"`
	TargetFolder  string         `json:"target_folder,omitempty"`
	Priority      string         `json:"priority,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	Error         string         `json:"error,omitempty"`
	Detail        string         `json:"detail,omitempty"`
	Retryable     bool           `json:"retryable,omitempty"`
}

package routing

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/services"
)

// Workflow identifiers triggered by the decision table.
const (
	WorkflowContract = "WF-CONTRACT-01"
	WorkflowFinance  = "WF-FINANCE-03"
)

// FolderResolver maps a category code to its archive folder.
type FolderResolver interface {
	Folder(category string) string
}

type rule struct {
	id    string
	match func(intake.Metadata) bool
	apply func(*Engine, intake.Metadata, intake.ActorContext) intake.RoutingDecision
}

// decisionTable is evaluated in order; the first match wins. A locked contract
// therefore routes to the legal workflow, not the security branch.
var decisionTable = []rule{
	{id: "contract", match: categoryIs(intake.CategoryContract), apply: (*Engine).routeContract},
	{id: "finance_report", match: categoryIs(intake.CategoryFinanceReport), apply: (*Engine).routeFinance},
	{id: "security", match: isSensitive, apply: (*Engine).routeSecurity},
	{id: "default", match: func(intake.Metadata) bool { return true }, apply: (*Engine).routeDefault},
}

// Engine evaluates routing decisions.
type Engine struct {
	settings Settings
	folders  FolderResolver
	logger   *slog.Logger
}

// New constructs a routing engine. folders may be nil, in which case the
// lowercased category code is used as the folder name.
func New(settings Settings, folders FolderResolver, logger *slog.Logger) *Engine {
	return &Engine{
		settings: settings,
		folders:  folders,
		logger:   logging.NewComponentLogger(logger, "routing"),
	}
}

// Evaluate returns the routing decision for metadata submitted by actor.
// Internal failures are recovered and reported as AUTO_ROUTE_FAILED.
func (e *Engine) Evaluate(metadata intake.Metadata, actor intake.ActorContext) (decision intake.RoutingDecision) {
	defer func() {
		if r := recover(); r != nil {
			decision = intake.RoutingDecision{
				Success:   false,
				Triggered: false,
				Error:     intake.RoutingAutoRouteFailed,
				Detail:    fmt.Sprint(r),
				Retryable: true,
			}
			logging.ErrorWithContext(e.logger, "routing evaluation failed", "routing_failure",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "document saved as draft; retry routing"),
			)
		}
	}()

	if ok, reason := e.Authorize(metadata, actor); !ok {
		e.logger.Info("routing denied",
			logging.Args(append(logging.DecisionAttrs("routing", "denied", reason),
				logging.String("user_id", actor.UserID))...)...)
		return intake.RoutingDecision{
			Success:   false,
			Triggered: false,
			Error:     intake.RoutingInsufficientPermissions,
			Detail:    reason,
		}
	}

	for _, r := range decisionTable {
		if !r.match(metadata) {
			continue
		}
		decision = r.apply(e, metadata, actor)
		decision.Rule = r.id
		e.logger.Info("routing decision",
			logging.Args(append(logging.DecisionAttrs("routing", decision.Action, r.id),
				logging.Bool("triggered", decision.Triggered),
				logging.Int("notifications", len(decision.Notifications)))...)...)
		return decision
	}
	// unreachable: the default rule always matches
	return intake.RoutingDecision{Success: false, Error: intake.RoutingAutoRouteFailed, Retryable: true}
}

func (e *Engine) routeContract(metadata intake.Metadata, _ intake.ActorContext) intake.RoutingDecision {
	title := displayTitle(metadata)
	message := "Hợp đồng mới cần phê duyệt: " + title
	return intake.RoutingDecision{
		Success:   true,
		Triggered: true,
		Action:    intake.ActionTriggerWorkflow,
		Workflow: &intake.WorkflowRef{
			ID:             WorkflowContract,
			Name:           "Phê duyệt hợp đồng",
			CandidateGroup: e.settings.LegalGroup,
			Approver:       e.settings.LegalApprover,
		},
		Priority: intake.PriorityNormal,
		Notifications: []intake.Notification{
			{Channel: intake.ChannelEmail, Recipient: e.settings.LegalApprover, Subject: "Phê duyệt hợp đồng", Message: message, Priority: intake.PriorityNormal},
			{Channel: intake.ChannelSystem, Recipient: e.settings.LegalGroup, Subject: "Phê duyệt hợp đồng", Message: message, Priority: intake.PriorityNormal},
		},
	}
}

func (e *Engine) routeFinance(metadata intake.Metadata, _ intake.ActorContext) intake.RoutingDecision {
	title := displayTitle(metadata)
	priority := intake.PriorityNormal
	message := "Báo cáo tài chính cần xem xét: " + title
	if urgency, ok := urgentMarker(metadata.Urgency); ok {
		priority = intake.PriorityHigh
		message = "[" + cases.Upper(language.Vietnamese).String(urgency) + "] " + message
	}
	return intake.RoutingDecision{
		Success:   true,
		Triggered: true,
		Action:    intake.ActionTriggerWorkflow,
		Workflow: &intake.WorkflowRef{
			ID:             WorkflowFinance,
			Name:           "Xét duyệt báo cáo tài chính",
			CandidateGroup: e.settings.AccountingGroup,
			Approver:       e.settings.AccountingApprover,
		},
		Priority: priority,
		Notifications: []intake.Notification{
			{Channel: intake.ChannelEmail, Recipient: e.settings.AccountingApprover, Subject: "Báo cáo tài chính", Message: message, Priority: priority},
			{Channel: intake.ChannelSystem, Recipient: e.settings.AccountingGroup, Subject: "Báo cáo tài chính", Message: message, Priority: priority},
		},
	}
}

func (e *Engine) routeSecurity(metadata intake.Metadata, actor intake.ActorContext) intake.RoutingDecision {
	message := fmt.Sprintf("Tài liệu mật được tải lên bởi %s: %s", actorName(actor), displayTitle(metadata))
	notifications := make([]intake.Notification, 0, len(e.settings.SecurityList))
	for _, recipient := range e.settings.SecurityList {
		notifications = append(notifications, intake.Notification{
			Channel:   intake.ChannelEmail,
			Recipient: recipient,
			Subject:   "Cảnh báo bảo mật",
			Message:   message,
			Priority:  intake.PriorityHigh,
		})
	}
	return intake.RoutingDecision{
		Success:       true,
		Triggered:     false,
		Action:        intake.ActionSecurityNotification,
		Priority:      intake.PriorityHigh,
		Notifications: notifications,
	}
}

func (e *Engine) routeDefault(metadata intake.Metadata, actor intake.ActorContext) intake.RoutingDecision {
	folder := e.folderFor(metadata.Category)
	decision := intake.RoutingDecision{
		Success:      true,
		Triggered:    false,
		Action:       intake.ActionAutoCategorization,
		TargetFolder: folder,
		Priority:     intake.PriorityNormal,
	}
	if actor.HasPermission(intake.PermissionNotify) && strings.TrimSpace(actor.UserID) != "" {
		decision.Notifications = []intake.Notification{{
			Channel:   intake.ChannelSystem,
			Recipient: actor.UserID,
			Subject:   "Tài liệu đã được phân loại",
			Message:   fmt.Sprintf("Tài liệu %s đã được lưu vào %s", displayTitle(metadata), folder),
			Priority:  intake.PriorityNormal,
		}}
	}
	return decision
}

func (e *Engine) folderFor(category string) string {
	var name string
	if e.folders != nil {
		name = e.folders.Folder(category)
	}
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(category))
	}
	if name == "" {
		name = "general"
	}
	root := e.settings.FolderRoot
	if root == "" {
		root = "/"
	}
	return path.Join(root, name)
}

func categoryIs(code string) func(intake.Metadata) bool {
	return func(m intake.Metadata) bool {
		return strings.EqualFold(strings.TrimSpace(m.Category), code)
	}
}

func isSensitive(m intake.Metadata) bool {
	return confidentiality(m) == intake.ConfidentialityLocked ||
		strings.EqualFold(strings.TrimSpace(m.Security), intake.SecurityHigh)
}

var urgentMarkers = []string{intake.UrgencyUrgent, intake.UrgencyFlash, "Hoả tốc"}

// urgentMarker reports whether urgency is one of the urgent levels, returning
// the canonical spelling.
func urgentMarker(urgency string) (string, bool) {
	value := norm.NFC.String(strings.TrimSpace(urgency))
	for _, marker := range urgentMarkers {
		if strings.EqualFold(value, norm.NFC.String(marker)) {
			if marker == "Hoả tốc" {
				return intake.UrgencyFlash, true
			}
			return marker, true
		}
	}
	return "", false
}

func displayTitle(m intake.Metadata) string {
	if title := strings.TrimSpace(m.Title); title != "" {
		return title
	}
	return "(không có tiêu đề)"
}

func actorName(actor intake.ActorContext) string {
	if id := strings.TrimSpace(actor.UserID); id != "" {
		return id
	}
	return "người dùng không xác định"
}

// DecisionError translates an unsuccessful decision into the error taxonomy.
// Successful decisions return nil.
func DecisionError(decision intake.RoutingDecision) error {
	if decision.Success {
		return nil
	}
	switch decision.Error {
	case intake.RoutingInsufficientPermissions:
		return services.Wrap(services.ErrPermissionDenied, "routing", "authorize", decision.Detail, nil)
	default:
		return services.Wrap(services.ErrRoutingFailure, "routing", "evaluate", decision.Detail, nil)
	}
}

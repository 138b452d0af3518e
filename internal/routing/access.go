package routing

import (
	"strings"

	"docintake/internal/intake"
)

// Authorize applies the RBAC permission check followed by the ABAC
// confidentiality check. The returned reason is empty when access is granted.
func (e *Engine) Authorize(metadata intake.Metadata, actor intake.ActorContext) (bool, string) {
	if !actor.HasPermission(intake.PermissionDistribute) {
		return false, "missing permission " + intake.PermissionDistribute
	}
	if actor.HasAnyRole(e.settings.DepartmentHeadRoles...) {
		return true, ""
	}
	switch confidentiality(metadata) {
	case intake.ConfidentialityPublic:
		return true, ""
	case intake.ConfidentialityInternal:
		owner := strings.TrimSpace(metadata.OwnerDepartment)
		if owner != "" && strings.EqualFold(owner, strings.TrimSpace(actor.Department)) {
			return true, ""
		}
		return false, "internal document owned by another department"
	default:
		return false, "confidentiality " + confidentiality(metadata) + " requires a department head"
	}
}

// confidentiality defaults to INTERNAL when unset.
func confidentiality(metadata intake.Metadata) string {
	value := strings.ToUpper(strings.TrimSpace(metadata.Confidentiality))
	if value == "" {
		return intake.ConfidentialityInternal
	}
	return value
}

package domain

// ScopeReviewWorkflows is the permission scope of the review workflow settings.
const ScopeReviewWorkflows = "review-workflows"

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PermissionSet holds the CRUD capabilities of an actor within a single scope.
type PermissionSet struct {
	CanCreate bool `json:"canCreate"`
	CanRead   bool `json:"canRead"`
	CanUpdate bool `json:"canUpdate"`
	CanDelete bool `json:"canDelete"`
}

// PermissionAction builds the stored action string for a scope, e.g.
// "plugin::review-workflows.delete".
func PermissionAction(scope, action string) string {
	return "plugin::" + scope + "." + action
}

// Allows reports whether the set grants the given CRUD action.
func (p PermissionSet) Allows(action string) bool {
	switch action {
	case ActionCreate:
		return p.CanCreate
	case ActionRead:
		return p.CanRead
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	}
	return false
}

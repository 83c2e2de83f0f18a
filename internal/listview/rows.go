package listview

import "github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"

const CreatePath = "/create"

// WorkflowPath is the detail view of a workflow relative to the list screen.
func WorkflowPath(id string) string {
	return "/" + id
}

type Row struct {
	ID               string
	Name             string
	StageCount       int
	ContentTypeNames string
	Href             string
	CanEdit          bool
	CanDelete        bool
}

// BuildRows turns workflows into table rows in the order given. The delete
// affordance is never offered when only one workflow exists.
func BuildRows(workflows []domain.Workflow, registry *Registry, perms domain.PermissionSet) []Row {
	rows := make([]Row, len(workflows))
	canDelete := perms.CanDelete && len(workflows) > 1
	for i, wf := range workflows {
		rows[i] = Row{
			ID:               wf.ID,
			Name:             wf.Name,
			StageCount:       len(wf.Stages),
			ContentTypeNames: JoinContentTypeNames(wf.ContentTypes, registry),
			Href:             WorkflowPath(wf.ID),
			CanEdit:          perms.CanRead || perms.CanUpdate,
			CanDelete:        canDelete,
		}
	}
	return rows
}

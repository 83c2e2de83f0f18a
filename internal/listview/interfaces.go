package listview

import (
	"context"

	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

type ContentTypeRegistry interface {
	ListContentTypes(ctx context.Context) ([]domain.ContentType, error)
}

// WorkflowService lists workflows and deletes them. DeleteWorkflow reports its
// own failures to the user.
type WorkflowService interface {
	ListWorkflows(ctx context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

type LicenseResolver interface {
	FeatureLimits(ctx context.Context, feature string) (domain.Limits, error)
}

type PermissionEvaluator interface {
	Evaluate(ctx context.Context, actor string, scope string) domain.PermissionSet
}

// Tracker records fire-and-forget usage events.
type Tracker interface {
	Track(ctx context.Context, event string)
}

type Navigator interface {
	Navigate(path string)
}

// Deps are the collaborators a Controller is mounted with. Notifier may be nil.
type Deps struct {
	Workflows    WorkflowService
	ContentTypes ContentTypeRegistry
	License      LicenseResolver
	Permissions  PermissionEvaluator
	Tracker      Tracker
	Navigator    Navigator
	Notifier     notification.Notifier
}

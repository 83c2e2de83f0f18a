package services

import (
	"context"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// WorkflowStore is implemented by repository.WorkflowRepository.
type WorkflowStore interface {
	FindAll(ctx context.Context) ([]domain.Workflow, error)
	FindByID(ctx context.Context, id string) (*domain.Workflow, error)
	FindByName(ctx context.Context, name string) (*domain.Workflow, error)
	ContentTypeAssignments(ctx context.Context) (map[string]string, error)
	SaveAdmitted(ctx context.Context, wf *domain.Workflow, admit func(count int) error) error
	Update(ctx context.Context, wf *domain.Workflow) error
	Delete(ctx context.Context, id string) error
}

type ContentTypeStore interface {
	FindAll(ctx context.Context) ([]domain.ContentType, error)
}

type LicenseStore interface {
	FindByFeature(ctx context.Context, feature string) (domain.Limits, error)
	Upsert(ctx context.Context, feature, entitlement, value string) error
	Delete(ctx context.Context, feature, entitlement string) error
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

type RoleStore interface {
	FindActionsByRole(ctx context.Context, role string) ([]string, error)
}

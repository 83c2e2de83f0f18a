package services

import (
	"context"
	"log/slog"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// PermissionService maps a user's role to the CRUD actions of a scope.
type PermissionService struct {
	users UserStore
	roles RoleStore
}

func NewPermissionService(users UserStore, roles RoleStore) *PermissionService {
	return &PermissionService{users: users, roles: roles}
}

// Evaluate never fails; lookup errors deny everything.
func (s *PermissionService) Evaluate(ctx context.Context, actor string, scope string) domain.PermissionSet {
	actions, err := s.actionsFor(ctx, actor)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to evaluate permissions", "actor", actor, "scope", scope, "error", err)
		return domain.PermissionSet{}
	}
	granted := make(map[string]bool, len(actions))
	for _, a := range actions {
		granted[a] = true
	}
	return domain.PermissionSet{
		CanCreate: granted[domain.PermissionAction(scope, domain.ActionCreate)],
		CanRead:   granted[domain.PermissionAction(scope, domain.ActionRead)],
		CanUpdate: granted[domain.PermissionAction(scope, domain.ActionUpdate)],
		CanDelete: granted[domain.PermissionAction(scope, domain.ActionDelete)],
	}
}

func (s *PermissionService) actionsFor(ctx context.Context, actor string) ([]string, error) {
	user, err := s.users.FindByUsername(ctx, actor)
	if err != nil {
		return nil, err
	}
	if user == nil || (user.Enabled.Valid && !user.Enabled.Bool) {
		return nil, ErrUnknownUser
	}
	return s.roles.FindActionsByRole(ctx, user.Role)
}

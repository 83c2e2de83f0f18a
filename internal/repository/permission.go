package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PermissionRepository maps roles to granted action strings.
type PermissionRepository struct {
	db *sql.DB
}

func NewPermissionRepository(db *sql.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// FindActionsByRole returns the actions granted to a role.
func (r *PermissionRepository) FindActionsByRole(ctx context.Context, role string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT action
        FROM role_permissions
        WHERE role = `+placeholder(1)+`
        ORDER BY action ASC`, role)
	if err != nil {
		return nil, fmt.Errorf("query permissions for role %s: %w", role, err)
	}
	defer rows.Close()

	actions := make([]string, 0)
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// Grant adds an action to a role. Granting twice is a no-op.
func (r *PermissionRepository) Grant(ctx context.Context, role, action string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO role_permissions (role, action)
        VALUES (`+placeholders(1, 2)+`)`+
		upsertSuffix([]string{"role", "action"}, []string{"action"}),
		role, action)
	return err
}

func (r *PermissionRepository) Revoke(ctx context.Context, role, action string) error {
	_, err := r.db.ExecContext(ctx, `
        DELETE FROM role_permissions
        WHERE role = `+placeholder(1)+` AND action = `+placeholder(2),
		role, action)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// ContentTypeRepository reads and registers the content types known to the CMS.
type ContentTypeRepository struct {
	db *sql.DB
}

func NewContentTypeRepository(db *sql.DB) *ContentTypeRepository {
	return &ContentTypeRepository{db: db}
}

// FindAll returns content types ordered by display name.
func (r *ContentTypeRepository) FindAll(ctx context.Context) ([]domain.ContentType, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT uid, display_name, kind
        FROM content_types
        ORDER BY display_name ASC, uid ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query content types: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ContentType, 0)
	for rows.Next() {
		var ct domain.ContentType
		if err := rows.Scan(&ct.UID, &ct.DisplayName, &ct.Kind); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// Upsert registers a content type or refreshes its display name and kind.
func (r *ContentTypeRepository) Upsert(ctx context.Context, ct domain.ContentType) error {
	if ct.Kind == "" {
		ct.Kind = domain.ContentTypeKindCollection
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO content_types (uid, display_name, kind)
        VALUES (`+placeholders(1, 3)+`)`+
		upsertSuffix([]string{"uid"}, []string{"display_name", "kind"}),
		ct.UID, ct.DisplayName, ct.Kind)
	if err != nil {
		return fmt.Errorf("upsert content type %s: %w", ct.UID, err)
	}
	return nil
}

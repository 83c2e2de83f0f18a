package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// LicenseRepository stores the entitlements granted by the installed license.
type LicenseRepository struct {
	db *sql.DB
}

func NewLicenseRepository(db *sql.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// FindByFeature returns every entitlement stored for the feature. An unknown
// feature yields an empty map.
func (r *LicenseRepository) FindByFeature(ctx context.Context, feature string) (domain.Limits, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT entitlement, value
        FROM license_features
        WHERE feature = `+placeholder(1), feature)
	if err != nil {
		return nil, fmt.Errorf("query license feature %s: %w", feature, err)
	}
	defer rows.Close()

	limits := make(domain.Limits)
	for rows.Next() {
		var entitlement, value string
		if err := rows.Scan(&entitlement, &value); err != nil {
			return nil, err
		}
		limits[entitlement] = value
	}
	return limits, rows.Err()
}

// Upsert stores one entitlement value.
func (r *LicenseRepository) Upsert(ctx context.Context, feature, entitlement, value string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO license_features (feature, entitlement, value)
        VALUES (`+placeholders(1, 3)+`)`+
		upsertSuffix([]string{"feature", "entitlement"}, []string{"value"}),
		feature, entitlement, value)
	return err
}

// Delete removes an entitlement, making it unbounded unless a default applies.
func (r *LicenseRepository) Delete(ctx context.Context, feature, entitlement string) error {
	_, err := r.db.ExecContext(ctx, `
        DELETE FROM license_features
        WHERE feature = `+placeholder(1)+` AND entitlement = `+placeholder(2),
		feature, entitlement)
	return err
}

package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// LicenseLimitService resolves plan ceilings. Values stored in the database
// override the configured plan defaults.
type LicenseLimitService struct {
	store LicenseStore
}

func NewLicenseLimitService(store LicenseStore) *LicenseLimitService {
	return &LicenseLimitService{store: store}
}

func configuredDefaults(feature string) domain.Limits {
	limits := make(domain.Limits)
	if feature != domain.FeatureReviewWorkflows {
		return limits
	}
	if v := config.GetSystemSettingString(config.LICENSE_WORKFLOWS_LIMIT); v != "" {
		limits[domain.EntitlementWorkflows] = v
	}
	if v := config.GetSystemSettingString(config.LICENSE_STAGES_LIMIT); v != "" {
		limits[domain.EntitlementStagesPerWorkflow] = v
	}
	return limits
}

func (s *LicenseLimitService) FeatureLimits(ctx context.Context, feature string) (domain.Limits, error) {
	limits := configuredDefaults(feature)
	stored, err := s.store.FindByFeature(ctx, feature)
	if err != nil {
		return nil, fmt.Errorf("resolve license feature %s: %w", feature, err)
	}
	for k, v := range stored {
		limits[k] = v
	}
	return limits, nil
}

// SetLimit stores a ceiling. An empty value removes the stored override.
func (s *LicenseLimitService) SetLimit(ctx context.Context, feature, entitlement, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.store.Delete(ctx, feature, entitlement)
	}
	if n, err := strconv.Atoi(value); err != nil || n < 0 {
		return &ValidationError{Fields: map[string]string{entitlement: "must be a non-negative integer"}}
	}
	return s.store.Upsert(ctx, feature, entitlement, value)
}

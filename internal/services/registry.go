package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RealZimboGuy/reviewflow/internal/telemetry"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// ContentTypeRegistryService lists the content types workflows can govern.
type ContentTypeRegistryService struct {
	store  ContentTypeStore
	tracer trace.Tracer
}

func NewContentTypeRegistryService(store ContentTypeStore) *ContentTypeRegistryService {
	return &ContentTypeRegistryService{store: store, tracer: telemetry.Tracer(servicesScope)}
}

func (s *ContentTypeRegistryService) ListContentTypes(ctx context.Context) ([]domain.ContentType, error) {
	ctx, span := s.tracer.Start(ctx, "content_types.list")
	defer span.End()

	items, err := s.store.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("content_type.count", len(items)))
	return items, nil
}

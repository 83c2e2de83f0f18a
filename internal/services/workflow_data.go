package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/internal/repository"
	"github.com/RealZimboGuy/reviewflow/internal/telemetry"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

const servicesScope = "github.com/RealZimboGuy/reviewflow/services"

// WorkflowDataService feeds the list screen. Reads are retried on transient
// database errors; deletes report their outcome to the notifier.
type WorkflowDataService struct {
	store      WorkflowStore
	notifier   notification.Notifier
	tracer     trace.Tracer
	maxElapsed time.Duration
}

func NewWorkflowDataService(store WorkflowStore, notifier notification.Notifier) *WorkflowDataService {
	if notifier == nil {
		notifier = notification.Discard{}
	}
	return &WorkflowDataService{
		store:      store,
		notifier:   notifier,
		tracer:     telemetry.Tracer(servicesScope),
		maxElapsed: config.GetSystemSettingDuration(config.FETCH_RETRY_MAX_ELAPSED),
	}
}

func (s *WorkflowDataService) newBackoff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; always build a fresh one.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = s.maxElapsed
	return backoff.WithContext(bo, ctx)
}

// ListWorkflows returns every workflow with its count.
func (s *WorkflowDataService) ListWorkflows(ctx context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
	ctx, span := s.tracer.Start(ctx, "workflows.list")
	defer span.End()

	var items []domain.Workflow
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		var err error
		items, err = s.store.FindAll(ctx)
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, s.newBackoff(ctx))
	span.SetAttributes(attribute.Int("retry.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.WorkflowListMeta{}, err
	}
	span.SetAttributes(attribute.Int("workflow.count", len(items)))
	return items, domain.WorkflowListMeta{WorkflowCount: len(items)}, nil
}

// DeleteWorkflow removes a workflow and tells the user how it went.
func (s *WorkflowDataService) DeleteWorkflow(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "workflows.delete", trace.WithAttributes(attribute.String("workflow.id", id)))
	defer span.End()

	err := s.store.Delete(ctx, id)
	switch {
	case err == nil:
		s.notifier.Notify(ctx, notification.LevelSuccess, "Workflow deleted.")
		return nil
	case repository.IsLastWorkflow(err):
		s.notifier.Notify(ctx, notification.LevelError, "The last workflow cannot be deleted.")
	case repository.IsWorkflowNotFound(err):
		s.notifier.Notify(ctx, notification.LevelError, "The workflow no longer exists.")
	default:
		slog.ErrorContext(ctx, "Failed to delete workflow", "workflowId", id, "error", err)
		s.notifier.Notify(ctx, notification.LevelError, "The workflow could not be deleted.")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// isRetryableError reports transient connection or locking errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"connection refused",
		"connection reset",
		"database is locked",
		"lost connection",
		"broken pipe",
		"i/o timeout",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

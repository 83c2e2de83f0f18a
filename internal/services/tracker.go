package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/RealZimboGuy/reviewflow/internal/telemetry"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
)

// UsageTracker counts product usage events.
type UsageTracker struct {
	events metric.Int64Counter
}

func NewUsageTracker() *UsageTracker {
	m := telemetry.Meter(servicesScope)
	events, _ := m.Int64Counter("reviewflow.usage.events",
		metric.WithDescription("Usage events emitted by the admin screens"),
	)
	return &UsageTracker{events: events}
}

func (t *UsageTracker) Track(ctx context.Context, event string) {
	username, _ := ctx.Value(core.CtxKeyUsername).(string)
	slog.InfoContext(ctx, "Usage event", "event", event, "username", username)
	if t.events != nil {
		t.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	}
}

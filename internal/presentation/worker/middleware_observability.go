// Package workerpresentation adapts outbox subscriptions for background
// handlers: every delivery runs with its own event-scoped logger.
package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

// WithEventContext stores a logger carrying event_id (generated when absent),
// the trace ids when valid and the given low-cardinality attributes.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := make([]observability.Field, 0, len(attrs)+3)
	fields = append(fields, observability.F("event_id", evtID))

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}
	return logctx.With(ctx, base.With(fields...))
}

type subscriber struct {
	next domoutbox.Subscriber
	log  observability.Logger
}

// Subscriber wraps next so each handler invocation sees WithEventContext.
func Subscriber(next domoutbox.Subscriber, base observability.Logger) domoutbox.Subscriber {
	return &subscriber{next: next, log: base}
}

func (s *subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		attrs := map[string]string{"event": e.EventName()}
		if k, ok := e.(interface{ PartitionKey() string }); ok {
			attrs["partition_key"] = k.PartitionKey()
		}
		return h(WithEventContext(ctx, logctx.FromOr(ctx, s.log), attrs), e)
	})
}

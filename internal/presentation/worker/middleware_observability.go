package workerpresentation

import (
	"context"

	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const eventSpanPrefix = "Event."

// WithEventContext injects an event-scoped logger for worker executions.
// Fields: event_id (generated if empty), trace_id/span_id when valid, plus
// the caller's low-cardinality attributes.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 4+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Subscriber wraps handlers so each delivery runs in its own span with an
// event-scoped logger.
type Subscriber struct {
	next   domoutbox.Subscriber
	tracer observability.Tracer
	log    observability.Logger
}

func NewSubscriber(next domoutbox.Subscriber, tel observability.Observability) *Subscriber {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Subscriber{
		next:   next,
		tracer: tel.Tracer(),
		log:    tel.Logger().With(observability.F("component", "worker")),
	}
}

func (s *Subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		ctx, span := s.tracer.Start(ctx, eventSpanPrefix+eventName,
			attribute.String("event.name", eventName),
		)
		defer span.End()

		attrs := map[string]string{"event": eventName}
		if id := orderID(e); id != "" {
			attrs["order_id"] = id
			span.SetAttributes(attribute.String("order.id", id))
		}
		sc := span.SpanContext()
		ctx = WithEventContext(ctx, s.log, sc.TraceID(), sc.SpanID(), attrs)

		err := h(ctx, e)
		if err != nil {
			span.RecordError(err)
		}
		return err
	})
}

func orderID(e domoutbox.Event) string {
	switch evt := e.(type) {
	case domorder.OrderPlacedEvent:
		return evt.OrderID
	case domorder.OrderCancelledEvent:
		return evt.OrderID
	}
	return ""
}

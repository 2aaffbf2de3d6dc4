package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultScope = "minishop-fashion"

type tracer struct {
	t     trace.Tracer
	scope string
}

// New returns a tracer bound to the global OTel provider. Without an SDK provider
// installed via otel.SetTracerProvider, spans are non-recording.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultScope
	}
	return &tracer{t: otel.Tracer(name), scope: name}
}

// Setup installs the W3C trace-context and baggage propagators so inbound
// traceparent headers continue the caller's trace, then returns New(name).
func Setup(name string) observability.Tracer {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return New(name)
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithAttributes(attribute.String("service.scope", t.scope)),
	)
}

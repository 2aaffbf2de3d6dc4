package oteltrace

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestStart_ReturnsSpanBoundToContext(t *testing.T) {
	tr := New("")

	ctx, span := tr.Start(context.Background(), "UC.PlaceOrder", attribute.String("use_case", "order.place"))
	defer span.End()

	assert.NotNil(t, span)
	assert.Equal(t, span, trace.SpanFromContext(ctx))
}

func TestSetup_ExtractsTraceParent(t *testing.T) {
	Setup("test")

	header := http.Header{}
	header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(header))

	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
	assert.True(t, sc.IsRemote())
}

package workerpresentation

import (
	"context"
	"testing"

	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/trace"
)

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if c.handlers == nil {
		c.handlers = make(map[string]domoutbox.Handler)
	}
	c.handlers[name] = h
}

type recordingLogger struct {
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}
func (l *recordingLogger) Debug(string, ...observability.Field) {}
func (l *recordingLogger) Info(string, ...observability.Field)  {}
func (l *recordingLogger) Warn(string, ...observability.Field)  {}
func (l *recordingLogger) Error(string, ...observability.Field) {}

func fieldMap(l observability.Logger) map[string]any {
	out := map[string]any{}
	if rl, ok := l.(*recordingLogger); ok {
		for _, f := range rl.fields {
			out[f.Key] = f.Value
		}
	}
	return out
}

func TestWithEventContext_KeepsGivenEventID(t *testing.T) {
	ctx := WithEventContext(context.Background(), &recordingLogger{}, trace.TraceID{}, trace.SpanID{},
		map[string]string{"event_id": "evt-1", "event": "order.cancelled", "empty": ""})

	fields := fieldMap(logctx.FromOr(ctx, nil))
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "order.cancelled", fields["event"])
	assert.NotContains(t, fields, "empty")
	assert.NotContains(t, fields, "trace_id")
}

func TestSubscriber_ScopesLoggerPerDelivery(t *testing.T) {
	inner := &captureSubscriber{}
	sub := NewSubscriber(inner, nil)
	sub.log = &recordingLogger{}

	var got map[string]any
	sub.Subscribe("order.cancelled", func(ctx context.Context, _ domoutbox.Event) error {
		got = fieldMap(logctx.FromOr(ctx, nil))
		return nil
	})

	h, ok := inner.handlers["order.cancelled"]
	require.True(t, ok)
	require.NoError(t, h(context.Background(), domorder.OrderCancelledEvent{OrderID: "o-7"}))

	assert.Equal(t, "o-7", got["order_id"])
	assert.Equal(t, "order.cancelled", got["event"])
	assert.NotEmpty(t, got["event_id"])
}

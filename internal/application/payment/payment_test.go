package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCounter struct {
	mu    sync.Mutex
	total map[string]float64
}

func (c *countingCounter) Add(d float64, labels ...observability.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range labels {
		c.total[l.Key+"="+l.Value] += d
	}
}

func (c *countingCounter) Bind(...observability.Label) observability.BoundCounter { return nil }

func (c *countingCounter) get(label string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total[label]
}

type countingMetrics struct {
	counters map[observability.MetricKey]*countingCounter
}

func (m *countingMetrics) Counter(name observability.MetricKey) observability.Counter {
	c, ok := m.counters[name]
	if !ok {
		c = &countingCounter{total: map[string]float64{}}
		m.counters[name] = c
	}
	return c
}

func (m *countingMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

type testTelemetry struct{ metrics *countingMetrics }

func newTestTelemetry() *testTelemetry {
	return &testTelemetry{metrics: &countingMetrics{counters: map[observability.MetricKey]*countingCounter{}}}
}

func (t *testTelemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t *testTelemetry) Logger() observability.Logger   { return observability.NopLogger() }
func (t *testTelemetry) Metrics() observability.Metrics { return t.metrics }

func (t *testTelemetry) counter(name observability.MetricKey) *countingCounter {
	return t.metrics.Counter(name).(*countingCounter)
}

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if c.handlers == nil {
		c.handlers = make(map[string]domoutbox.Handler)
	}
	c.handlers[name] = h
}

func TestFlagRefund_CountsOnlyCapturedPayments(t *testing.T) {
	tel := newTestTelemetry()
	uc := NewFlagRefundUseCase(tel)
	ctx := context.Background()

	res, err := uc.Execute(ctx, domorder.OrderCancelledEvent{OrderID: "o-1", PaymentMethod: domorder.PaymentCOD})
	require.NoError(t, err)
	assert.False(t, res.Flagged)

	res, err = uc.Execute(ctx, domorder.OrderCancelledEvent{
		OrderID:        "o-2",
		PaymentMethod:  domorder.PaymentCard,
		RefundRequired: true,
		Reason:         "buyer_request",
	})
	require.NoError(t, err)
	assert.True(t, res.Flagged)

	refunds := tel.counter(observability.MRefundRequired)
	assert.Equal(t, 1.0, refunds.get("payment_method=card"))
	assert.Equal(t, 0.0, refunds.get("payment_method=cod"))
	assert.Equal(t, 2.0, tel.counter(observability.MUsecaseRequests).get("use_case="+useCaseFlagRefund))
}

func TestWorker_SubscribesToCancellations(t *testing.T) {
	tel := newTestTelemetry()
	sub := &captureSubscriber{}
	NewWorker(sub, NewFlagRefundUseCase(tel), tel).Start()

	h, ok := sub.handlers["order.cancelled"]
	require.True(t, ok)
	require.NoError(t, h(context.Background(), domorder.OrderCancelledEvent{
		OrderID:        "o-1",
		PaymentMethod:  domorder.PaymentCard,
		RefundRequired: true,
	}))
	assert.NoError(t, h(context.Background(), domorder.OrderPlacedEvent{OrderID: "o-2"}))

	assert.Equal(t, 1.0, tel.counter(observability.MRefundRequired).get("payment_method=card"))
}

type stubGateway struct {
	err error
}

func (g stubGateway) CreateIntent(_ context.Context, req dompayment.IntentRequest) (*dompayment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &dompayment.Intent{ID: "order_1", AmountMinor: req.AmountMinor, Currency: req.Currency}, nil
}

func (g stubGateway) FetchIntent(_ context.Context, id string) (*dompayment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &dompayment.Intent{ID: id}, nil
}

func (stubGateway) VerifySignature(_, _, sig string) bool { return sig == "ok" }
func (stubGateway) PublicKey() string                     { return "rzp_test_key" }

func TestInstrumentedGateway_RecordsExternalCalls(t *testing.T) {
	ctx := context.Background()
	tel := newTestTelemetry()

	g := NewInstrumentedGateway(stubGateway{}, "razorpay", tel)
	in, err := g.CreateIntent(ctx, dompayment.IntentRequest{AmountMinor: 118000, Currency: "INR"})
	require.NoError(t, err)
	assert.Equal(t, int64(118000), in.AmountMinor)
	assert.True(t, g.VerifySignature("order_1", "pay_1", "ok"))
	assert.Equal(t, "rzp_test_key", g.PublicKey())

	failing := NewInstrumentedGateway(stubGateway{err: dompayment.ErrGateway}, "razorpay", tel)
	_, err = failing.FetchIntent(ctx, "order_1")
	assert.True(t, errors.Is(err, dompayment.ErrGateway))

	ext := tel.counter(observability.MExternalRequests)
	assert.Equal(t, 2.0, ext.get("peer=razorpay"))
	assert.Equal(t, 1.0, ext.get("endpoint=create_intent"))
	assert.Equal(t, 1.0, ext.get("outcome=error"))
}

package payment

import (
	"context"
	"time"

	dompayment "github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	endpointCreateIntent = "create_intent"
	endpointFetchIntent  = "fetch_intent"
)

// InstrumentedGateway records external call metrics and spans around a gateway.
type InstrumentedGateway struct {
	next   dompayment.Gateway
	peer   string
	tracer observability.Tracer
	log    observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstrumentedGateway(next dompayment.Gateway, peer string, tel observability.Observability) *InstrumentedGateway {
	if tel == nil {
		tel = observability.Nop()
	}
	return &InstrumentedGateway{
		next:         next,
		peer:         peer,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("peer", peer)),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

var _ dompayment.Gateway = (*InstrumentedGateway)(nil)

func (g *InstrumentedGateway) CreateIntent(ctx context.Context, req dompayment.IntentRequest) (intent *dompayment.Intent, err error) {
	ctx, done := g.call(ctx, endpointCreateIntent, attribute.Int64("payment.amount_minor", req.AmountMinor))
	defer func() { done(err) }()
	return g.next.CreateIntent(ctx, req)
}

func (g *InstrumentedGateway) FetchIntent(ctx context.Context, intentID string) (intent *dompayment.Intent, err error) {
	ctx, done := g.call(ctx, endpointFetchIntent, attribute.String("payment.provider_order_id", intentID))
	defer func() { done(err) }()
	return g.next.FetchIntent(ctx, intentID)
}

func (g *InstrumentedGateway) VerifySignature(intentID, paymentID, signature string) bool {
	return g.next.VerifySignature(intentID, paymentID, signature)
}

func (g *InstrumentedGateway) PublicKey() string { return g.next.PublicKey() }

func (g *InstrumentedGateway) call(ctx context.Context, endpoint string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String("peer.service", g.peer),
		attribute.String("endpoint", endpoint),
	)
	ctx, span := g.tracer.Start(ctx, "Gateway."+endpoint, attrs...)
	start := time.Now()

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			if ctx.Err() != nil {
				outcome = "canceled"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			logctx.FromOr(ctx, g.log).Warn("payment_gateway_call_failed",
				observability.F("peer", g.peer),
				observability.F("endpoint", endpoint),
				observability.F("error", err),
			)
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()

		g.extCounter.Add(1,
			observability.L("peer", g.peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		g.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", g.peer),
			observability.L("endpoint", endpoint),
		)
	}
}

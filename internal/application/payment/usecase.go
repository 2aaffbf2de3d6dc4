package payment

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	paymentService    = "payment-service"
	useCaseFlagRefund = "payment.flag_refund"
	flagRefundSpan    = "FlagRefund"
	spanPrefix        = "UC."
)

type FlagRefundResult struct {
	Flagged bool
}

// FlagRefundUseCase surfaces cancelled orders whose captured payment must be
// refunded by an operator. Refunds are never issued automatically.
type FlagRefundUseCase struct {
	tel           observability.Observability
	log           observability.Logger
	reqCounter    observability.Counter
	durHist       observability.Histogram
	refundCounter observability.Counter // order_refund_required_total{payment_method}
}

func NewFlagRefundUseCase(tel observability.Observability) *FlagRefundUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &FlagRefundUseCase{
		tel:           tel,
		log:           tel.Logger().With(observability.F("service", paymentService)),
		reqCounter:    tel.Metrics().Counter(observability.MUsecaseRequests),
		durHist:       tel.Metrics().Histogram(observability.MUsecaseDuration),
		refundCounter: tel.Metrics().Counter(observability.MRefundRequired),
	}
}

func (uc *FlagRefundUseCase) Execute(ctx context.Context, e domorder.OrderCancelledEvent) (_ *FlagRefundResult, err error) {
	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+flagRefundSpan,
		attribute.String("use_case", useCaseFlagRefund),
		attribute.String("order.id", e.OrderID),
	)
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseFlagRefund),
		observability.F("order_id", e.OrderID),
	)
	start := time.Now()
	status := "NO_REFUND_NEEDED"

	defer func() {
		lat := time.Since(start).Seconds()
		span.SetStatus(codes.Ok, status)
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseFlagRefund),
			observability.L("outcome", "success"),
		)
		uc.durHist.Observe(lat, observability.L("use_case", useCaseFlagRefund))

		fields := append([]observability.Field{
			observability.F("outcome", "success"),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		}, observability.TraceFields(ctx)...)
		logger.Info("use_case_done", fields...)
	}()

	if !e.RefundRequired {
		return &FlagRefundResult{}, nil
	}

	status = "REFUND_FLAGGED"
	uc.refundCounter.Add(1, observability.L("payment_method", string(e.PaymentMethod)))
	logger.Warn("refund_required",
		observability.F("buyer_id", e.BuyerID),
		observability.F("payment_method", string(e.PaymentMethod)),
		observability.F("reason", e.Reason),
	)
	return &FlagRefundResult{Flagged: true}, nil
}

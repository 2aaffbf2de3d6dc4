package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService    = "inventory-service"
	useCaseStockRelease = "inventory.release"
	releaseSpanName     = "ReleaseStock"
	spanPrefix          = "UC."
)

var ErrPartialRelease = errors.New("inventory: some lines were not released")

// ReleaseResult lists the products whose stock could not be returned.
type ReleaseResult struct {
	Released int
	Failed   []string
}

// ReleaseStockUseCase returns the stock held by a cancelled order to the catalog.
type ReleaseStockUseCase struct {
	catalog      domcatalog.Repository
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewReleaseStockUseCase(catalog domcatalog.Repository, tel observability.Observability) *ReleaseStockUseCase {
	baseLog := observability.NopLogger().With(
		observability.F("service", inventoryService),
	)
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger().With(
			observability.F("service", inventoryService),
		)
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}

	return &ReleaseStockUseCase{
		catalog:      catalog,
		log:          baseLog,
		tracer:       tracer,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
	}
}

// Execute releases every line of the cancelled order. Failed lines are
// reported; successful ones are not rolled back.
func (uc *ReleaseStockUseCase) Execute(ctx context.Context, e domorder.OrderCancelledEvent) (_ *ReleaseResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseStockRelease),
		observability.F("order_id", e.OrderID),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+releaseSpanName,
		attribute.String("use_case", useCaseStockRelease),
		attribute.String("order.id", e.OrderID),
		attribute.Int("order.lines", len(e.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	res := &ReleaseResult{}

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseStockRelease),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseStockRelease),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("released", res.Released),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if len(res.Failed) > 0 {
			fields = append(fields, observability.F("failed_products", res.Failed))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	for _, line := range e.Items {
		if line.Quantity <= 0 {
			continue
		}
		if rerr := uc.catalog.Release(ctx, line.ProductID, line.Quantity); rerr != nil {
			res.Failed = append(res.Failed, line.ProductID)
			logger.Warn("stock_release_failed",
				observability.F("product_id", line.ProductID),
				observability.F("quantity", line.Quantity),
				observability.F("error", rerr),
			)
			continue
		}
		res.Released++
	}

	if len(res.Failed) > 0 {
		outcome, statusText = "error", "PARTIAL_RELEASE"
		return res, fmt.Errorf("%w: %v", ErrPartialRelease, res.Failed)
	}
	span.AddEvent("inventory.released")
	return res, nil
}

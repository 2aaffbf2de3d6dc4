package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
)

const workerService = "inventory_worker"

// Worker releases stock whenever an order is cancelled.
type Worker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[domorder.OrderCancelledEvent, *ReleaseResult]

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func New(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[domorder.OrderCancelledEvent, *ReleaseResult],
	tel observability.Observability,
) *Worker {
	baseLogger := observability.NopLogger()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLogger = tel.Logger()
		metricsProvider = tel.Metrics()
	}
	return &Worker{
		subscriber:   subscriber,
		useCase:      useCase,
		log:          baseLogger.With(observability.F("service", workerService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCancelledEvent{}.EventName(), w.handleOrderCancelled)
}

func (w *Worker) handleOrderCancelled(ctx context.Context, e domoutbox.Event) error {
	const useCase = "inventory.worker.order_cancelled"
	evt, ok := e.(domorder.OrderCancelledEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	start := time.Now()
	outcome := "success"
	ctx, logger := logctx.Enrich(ctx, w.log,
		observability.F("worker_use_case", useCase),
		observability.F("order_id", evt.OrderID),
	)
	defer func() {
		w.observe(useCase, outcome, time.Since(start).Seconds())
	}()

	if _, err := w.useCase.Execute(ctx, evt); err != nil {
		outcome = "error"
		logger.Error("stock_release_incomplete", observability.F("error", err))
		return fmt.Errorf("worker: release stock: %w", err)
	}
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
}

func (w *Worker) observe(useCase string, outcome string, latencySeconds float64) {
	w.count(useCase, outcome)
	w.durHistogram.Observe(latencySeconds,
		observability.L("use_case", useCase),
	)
}

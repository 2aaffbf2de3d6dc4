package payment

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
)

const workerService = "payment_worker"

// Worker watches cancellations for payments that need a manual refund.
type Worker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[domorder.OrderCancelledEvent, *FlagRefundResult]
	log        observability.Logger
}

func NewWorker(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[domorder.OrderCancelledEvent, *FlagRefundResult],
	tel observability.Observability,
) *Worker {
	log := observability.NopLogger()
	if tel != nil {
		log = tel.Logger()
	}
	return &Worker{
		subscriber: subscriber,
		useCase:    useCase,
		log:        log.With(observability.F("service", workerService)),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCancelledEvent{}.EventName(), w.handleOrderCancelled)
}

func (w *Worker) handleOrderCancelled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCancelledEvent)
	if !ok {
		w.log.Debug("event_ignored", observability.F("event", e.EventName()))
		return nil
	}
	if _, err := w.useCase.Execute(ctx, evt); err != nil {
		return fmt.Errorf("worker: flag refund: %w", err)
	}
	return nil
}

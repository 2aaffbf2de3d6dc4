package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseCancelOrder = "order.cancel"
	maxCASAttempts     = 3

	ReasonBuyerRequest   = "buyer_request"
	ReasonSellerRequest  = "seller_request"
	ReasonPaymentTimeout = "payment_timeout"
)

// canceller is the single cancel path shared by buyers, sellers and the reaper.
type canceller struct {
	orders    domain.Repository
	publisher domoutbox.Publisher
	now       func() time.Time
	inst      *application.Instruments
}

// cancel moves o to cancelled and publishes order.cancelled. An order that is
// already cancelled is returned unchanged with changed=false.
func (c canceller) cancel(ctx context.Context, p *application.Execution, o *domain.Order, reason string) (*domain.Order, bool, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if o.Status == domain.StatusCancelled {
			return o, false, nil
		}
		expected := o.Status
		if err := o.Cancel(reason, c.now()); err != nil {
			return nil, false, wrapDomainError(err)
		}

		err := c.orders.Update(ctx, o, expected)
		if err == nil {
			if o.RefundRequired() {
				p.With(observability.F("refund_required", true))
				p.Logger().Warn("order_cancelled_after_payment",
					observability.F("order_id", o.ID),
					observability.F("amount", o.Payment.Amount.StringFixed(2)),
				)
			}
			c.inst.Publish(ctx, c.publisher, p, domain.NewOrderCancelledEvent(o))
			return o, true, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, false, wrapRepositoryError(err)
		}

		// Someone else changed the order; re-evaluate against the stored state.
		if o, err = c.orders.Get(ctx, o.ID); err != nil {
			return nil, false, wrapRepositoryError(err)
		}
	}
	return nil, false, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
}

type CancelOrderInput struct {
	OrderID string
	Reason  string
	Actor   session.Session
}

type CancelOrderResult struct {
	Order *domain.Order
	// AlreadyCancelled is set when the call was a no-op.
	AlreadyCancelled bool
}

type CancelOrderUseCase struct {
	orders    domain.Repository
	canceller canceller
	inst      application.Instruments
}

func NewCancelOrderUseCase(d Deps) *CancelOrderUseCase {
	d = d.withDefaults()
	uc := &CancelOrderUseCase{
		orders: d.Orders,
		inst:   application.NewInstruments(d.Tel, orderService),
	}
	uc.canceller = canceller{orders: d.Orders, publisher: d.Publisher, now: d.Now, inst: &uc.inst}
	return uc
}

func (uc *CancelOrderUseCase) Execute(ctx context.Context, cmd CancelOrderInput) (_ *CancelOrderResult, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseCancelOrder, "CancelOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { p.End(err) }()
	p.With(observability.F("order_id", cmd.OrderID))

	if cmd.OrderID == "" {
		p.Fail("ORDER_ID_REQUIRED")
		return nil, newValidation("order id is required")
	}

	o, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		p.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !visibleTo(o, cmd.Actor) {
		p.Fail("ORDER_NOT_VISIBLE")
		return nil, newNotFound("order")
	}

	reason := cmd.Reason
	if reason == "" {
		reason = defaultCancelReason(cmd.Actor)
	}

	o, changed, err := uc.canceller.cancel(ctx, p, o, reason)
	if err != nil {
		p.Fail("CANCEL_FAILED")
		return nil, err
	}
	if !changed {
		p.Note("ALREADY_CANCELLED")
	}
	return &CancelOrderResult{Order: o, AlreadyCancelled: !changed}, nil
}

func defaultCancelReason(actor session.Session) string {
	if actor.IsOwner() {
		return ReasonSellerRequest
	}
	return ReasonBuyerRequest
}

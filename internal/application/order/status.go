package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseUpdateStatus = "order.update_status"

type ShipmentInput struct {
	TrackingNumber string
	Carrier        string
}

type UpdateStatusInput struct {
	OrderID  string
	Status   string
	Shipment *ShipmentInput
	// Reason is only used when the new status is cancelled.
	Reason string
	Actor  session.Session
}

// UpdateStatusUseCase drives the fulfilment lifecycle. Cancelling goes
// through the same path as CancelOrderUseCase.
type UpdateStatusUseCase struct {
	orders    domain.Repository
	canceller canceller
	now       func() time.Time
	inst      application.Instruments
}

func NewUpdateStatusUseCase(d Deps) *UpdateStatusUseCase {
	d = d.withDefaults()
	uc := &UpdateStatusUseCase{
		orders: d.Orders,
		now:    d.Now,
		inst:   application.NewInstruments(d.Tel, orderService),
	}
	uc.canceller = canceller{orders: d.Orders, publisher: d.Publisher, now: d.Now, inst: &uc.inst}
	return uc
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	defer func() { p.End(err) }()
	p.With(
		observability.F("order_id", cmd.OrderID),
		observability.F("target_status", cmd.Status),
	)

	if cmd.OrderID == "" {
		p.Fail("ORDER_ID_REQUIRED")
		return nil, newValidation("order id is required")
	}
	to, err := domain.ParseStatus(cmd.Status)
	if err != nil || to == "" {
		p.Fail("STATUS_INVALID")
		return nil, newValidation("unknown status %q", cmd.Status)
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

	if to == domain.StatusCancelled {
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
		return o, nil
	}

	var shipment *domain.Shipment
	if cmd.Shipment != nil {
		shipment = &domain.Shipment{TrackingNumber: cmd.Shipment.TrackingNumber, Carrier: cmd.Shipment.Carrier}
	}

	from := o.Status
	if err := o.TransitionTo(to, shipment, "", uc.now()); err != nil {
		p.Fail("STATE_TRANSITION_FAILED")
		return nil, wrapDomainError(err)
	}
	if err := uc.orders.Update(ctx, o, from); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			p.Fail("CONCURRENT_UPDATE")
			return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
		}
		p.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	p.With(observability.F("from_status", string(from)))
	return o, nil
}

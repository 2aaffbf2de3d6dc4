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

const useCaseMarkRefunded = "order.mark_refunded"

type MarkRefundedInput struct {
	OrderID string
	Actor   session.Session
}

// MarkRefundedUseCase records a refund an operator issued outside the system.
// No provider call is made.
type MarkRefundedUseCase struct {
	orders domain.Repository
	now    func() time.Time
	inst   application.Instruments
}

func NewMarkRefundedUseCase(d Deps) *MarkRefundedUseCase {
	d = d.withDefaults()
	return &MarkRefundedUseCase{
		orders: d.Orders,
		now:    d.Now,
		inst:   application.NewInstruments(d.Tel, orderService),
	}
}

func (uc *MarkRefundedUseCase) Execute(ctx context.Context, cmd MarkRefundedInput) (_ *domain.Order, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseMarkRefunded, "MarkRefunded",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { p.End(err) }()
	p.With(observability.F("order_id", cmd.OrderID))

	o, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		p.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !visibleTo(o, cmd.Actor) {
		p.Fail("ORDER_NOT_VISIBLE")
		return nil, newNotFound("order")
	}

	if err := o.MarkRefunded(uc.now()); err != nil {
		p.Fail("REFUND_NOT_ALLOWED")
		return nil, fmt.Errorf("%w: order is not awaiting a refund", ErrInvalidTransition)
	}
	if err := uc.orders.Update(ctx, o, o.Status); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			p.Fail("CONCURRENT_UPDATE")
			return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
		}
		p.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}

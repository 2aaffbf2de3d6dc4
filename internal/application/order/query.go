package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseGetOrder        = "order.get"
	useCaseListBuyerOrders = "order.list_buyer"
	useCaseListOwnerOrders = "order.list_owner"
	defaultPageLimit       = 10
	maxPageLimit           = 100
)

// visibleTo reports whether actor may see o. The zero session is the system itself.
func visibleTo(o *domain.Order, actor session.Session) bool {
	switch actor.Role {
	case session.RoleBuyer:
		return o.BuyerID == actor.UserID
	case session.RoleOwner:
		return o.HasOwner(actor.UserID)
	default:
		return actor.UserID == ""
	}
}

type GetOrderInput struct {
	OrderID string
	Actor   session.Session
}

type GetOrderUseCase struct {
	orders domain.Repository
	inst   application.Instruments
}

func NewGetOrderUseCase(d Deps) *GetOrderUseCase {
	d = d.withDefaults()
	return &GetOrderUseCase{orders: d.Orders, inst: application.NewInstruments(d.Tel, orderService)}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseGetOrder, "GetOrder", attribute.String("order.id", cmd.OrderID))
	defer func() { p.End(err) }()

	o, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		p.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !visibleTo(o, cmd.Actor) {
		p.Fail("ORDER_NOT_VISIBLE")
		return nil, newNotFound("order")
	}
	return o, nil
}

type ListBuyerOrdersInput struct {
	BuyerID string
	Status  string
}

type ListBuyerOrdersUseCase struct {
	orders domain.Repository
	inst   application.Instruments
}

func NewListBuyerOrdersUseCase(d Deps) *ListBuyerOrdersUseCase {
	d = d.withDefaults()
	return &ListBuyerOrdersUseCase{orders: d.Orders, inst: application.NewInstruments(d.Tel, orderService)}
}

func (uc *ListBuyerOrdersUseCase) Execute(ctx context.Context, cmd ListBuyerOrdersInput) (_ []*domain.Order, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseListBuyerOrders, "ListBuyerOrders")
	defer func() { p.End(err) }()

	if cmd.BuyerID == "" {
		p.Fail("BUYER_ID_REQUIRED")
		return nil, newValidation("buyer id is required")
	}
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		p.Fail("STATUS_INVALID")
		return nil, newValidation("unknown status %q", cmd.Status)
	}

	orders, err := uc.orders.ListByBuyer(ctx, cmd.BuyerID, status)
	if err != nil {
		p.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	p.With(observability.F("count", len(orders)))
	return orders, nil
}

type ListOwnerOrdersInput struct {
	OwnerID string
	Status  string
	Page    int
	Limit   int
}

type ListOwnerOrdersResult struct {
	Orders      []*domain.Order
	Page        int
	Limit       int
	TotalOrders int64
	TotalPages  int64
	HasMore     bool
}

type ListOwnerOrdersUseCase struct {
	orders domain.Repository
	inst   application.Instruments
}

func NewListOwnerOrdersUseCase(d Deps) *ListOwnerOrdersUseCase {
	d = d.withDefaults()
	return &ListOwnerOrdersUseCase{orders: d.Orders, inst: application.NewInstruments(d.Tel, orderService)}
}

func (uc *ListOwnerOrdersUseCase) Execute(ctx context.Context, cmd ListOwnerOrdersInput) (_ *ListOwnerOrdersResult, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseListOwnerOrders, "ListOwnerOrders")
	defer func() { p.End(err) }()

	if cmd.OwnerID == "" {
		p.Fail("OWNER_ID_REQUIRED")
		return nil, newValidation("owner id is required")
	}
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		p.Fail("STATUS_INVALID")
		return nil, newValidation("unknown status %q", cmd.Status)
	}

	page := max(cmd.Page, 1)
	limit := cmd.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	limit = min(limit, maxPageLimit)

	res, err := uc.orders.ListByOwner(ctx, cmd.OwnerID, domain.OwnerFilter{Status: status, Page: page, Limit: limit})
	if err != nil {
		p.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}

	totalPages := (res.Total + int64(limit) - 1) / int64(limit)
	p.With(observability.F("count", len(res.Orders)), observability.F("total", res.Total))
	return &ListOwnerOrdersResult{
		Orders:      res.Orders,
		Page:        page,
		Limit:       limit,
		TotalOrders: res.Total,
		TotalPages:  totalPages,
		HasMore:     int64(page) < totalPages,
	}, nil
}

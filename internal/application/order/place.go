package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCasePlaceOrder = "order.place"

type PlaceOrderInput struct {
	BuyerID       string
	Lines         []LineInput // empty means "use the cart"
	AddressID     string
	PaymentMethod string
}

// PaymentIntent is what the client needs to complete a card payment.
type PaymentIntent struct {
	ProviderOrderID string
	AmountMinor     int64
	Currency        string
	Receipt         string
	KeyID           string
}

// PlaceOrderResult carries Order for cash on delivery and Intent for card.
type PlaceOrderResult struct {
	Order  *domain.Order
	Intent *PaymentIntent
	Totals domain.Totals
}

// PlaceOrderUseCase prices a checkout and either persists a COD order or opens
// a card payment intent. Card orders are persisted by FinalizePaymentUseCase.
type PlaceOrderUseCase struct {
	orders    domain.Repository
	checkout  checkout
	gateway   dompayment.Gateway
	publisher domoutbox.Publisher
	ids       IDGenerator
	currency  string
	now       func() time.Time
	inst      application.Instruments
}

func NewPlaceOrderUseCase(d Deps) *PlaceOrderUseCase {
	d = d.withDefaults()
	return &PlaceOrderUseCase{
		orders:    d.Orders,
		checkout:  checkout{catalog: d.Catalog, carts: d.Carts, addresses: d.Addresses},
		gateway:   d.Gateway,
		publisher: d.Publisher,
		ids:       d.IDs,
		currency:  d.Currency,
		now:       d.Now,
		inst:      application.NewInstruments(d.Tel, orderService),
	}
}

func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx, p := uc.inst.Begin(ctx, useCasePlaceOrder, "PlaceOrder",
		attribute.String("order.buyer_id", cmd.BuyerID),
		attribute.String("order.payment_method", cmd.PaymentMethod),
	)
	defer func() { p.End(err) }()

	method := domain.PaymentMethod(cmd.PaymentMethod)
	if !method.Valid() {
		p.Fail("PAYMENT_METHOD_INVALID")
		return nil, newValidation("unknown payment method %q", cmd.PaymentMethod)
	}

	q, err := uc.checkout.quote(ctx, cmd.BuyerID, cmd.AddressID, cmd.Lines)
	if err != nil {
		p.Fail("QUOTE_FAILED")
		return nil, err
	}
	p.With(observability.F("total", q.totals.Total.StringFixed(2)))

	if method == domain.PaymentCard {
		intent, err := uc.openIntent(ctx, cmd.BuyerID, q)
		if err != nil {
			p.Fail("INTENT_CREATE_FAILED")
			return nil, err
		}
		p.Note("INTENT_CREATED")
		p.With(observability.F("provider_order_id", intent.ProviderOrderID))
		return &PlaceOrderResult{Intent: intent, Totals: q.totals}, nil
	}

	entity, err := domain.New(domain.NewParams{
		ID:              uc.ids.NewID(),
		BuyerID:         cmd.BuyerID,
		Items:           q.items,
		ShippingAddress: q.address,
		Method:          domain.PaymentCOD,
		Now:             uc.now(),
	})
	if err != nil {
		p.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, wrapDomainError(err)
	}

	if err := uc.checkout.reserve(ctx, entity.Items); err != nil {
		p.Fail("STOCK_RESERVE_FAILED")
		return nil, err
	}
	if err := uc.orders.Insert(ctx, entity); err != nil {
		uc.checkout.release(ctx, entity.Items)
		p.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	p.With(observability.F("order_id", entity.ID))
	p.Span().SetAttributes(attribute.String("order.id", entity.ID))

	uc.checkout.clearCart(ctx, cmd.BuyerID)
	uc.inst.Publish(ctx, uc.publisher, p, domain.NewOrderPlacedEvent(entity))

	return &PlaceOrderResult{Order: entity, Totals: entity.Totals}, nil
}

func (uc *PlaceOrderUseCase) openIntent(ctx context.Context, buyerID string, q *quote) (*PaymentIntent, error) {
	if uc.gateway == nil {
		return nil, fmt.Errorf("%w: no gateway configured", ErrPaymentGateway)
	}
	receipt := "rcpt_" + uc.ids.NewID()
	intent, err := uc.gateway.CreateIntent(ctx, dompayment.IntentRequest{
		AmountMinor: q.totals.MinorUnits(),
		Currency:    uc.currency,
		Receipt:     receipt,
		Notes:       map[string]string{"buyer_id": buyerID},
	})
	if err != nil {
		return nil, wrapGatewayError(err)
	}
	return &PaymentIntent{
		ProviderOrderID: intent.ID,
		AmountMinor:     intent.AmountMinor,
		Currency:        intent.Currency,
		Receipt:         receipt,
		KeyID:           uc.gateway.PublicKey(),
	}, nil
}

func wrapGatewayError(err error) error {
	if errors.Is(err, dompayment.ErrVerification) {
		return fmt.Errorf("%w: %w", ErrPaymentVerification, err)
	}
	return fmt.Errorf("%w: %w", ErrPaymentGateway, err)
}

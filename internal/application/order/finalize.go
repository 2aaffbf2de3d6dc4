package order

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseFinalizePayment = "order.finalize_payment"

// FinalizePaymentInput repeats the checkout the intent was opened for.
type FinalizePaymentInput struct {
	BuyerID           string
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
	Lines             []LineInput
	AddressID         string
}

type FinalizePaymentResult struct {
	Order *domain.Order
	// Replayed is set when the payment had already been finalized.
	Replayed bool
}

// FinalizePaymentUseCase verifies a card payment and persists its order
// exactly once per provider payment id.
type FinalizePaymentUseCase struct {
	orders    domain.Repository
	checkout  checkout
	gateway   dompayment.Gateway
	publisher domoutbox.Publisher
	ids       IDGenerator
	currency  string
	now       func() time.Time
	inst      application.Instruments
}

func NewFinalizePaymentUseCase(d Deps) *FinalizePaymentUseCase {
	d = d.withDefaults()
	return &FinalizePaymentUseCase{
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

func (uc *FinalizePaymentUseCase) Execute(ctx context.Context, cmd FinalizePaymentInput) (_ *FinalizePaymentResult, err error) {
	ctx, p := uc.inst.Begin(ctx, useCaseFinalizePayment, "FinalizePayment",
		attribute.String("order.buyer_id", cmd.BuyerID),
		attribute.String("payment.provider_order_id", cmd.ProviderOrderID),
		attribute.String("payment.provider_payment_id", cmd.ProviderPaymentID),
	)
	defer func() { p.End(err) }()
	p.With(
		observability.F("provider_order_id", cmd.ProviderOrderID),
		observability.F("provider_payment_id", cmd.ProviderPaymentID),
	)

	if cmd.ProviderOrderID == "" || cmd.ProviderPaymentID == "" || cmd.Signature == "" {
		p.Fail("PAYMENT_FIELDS_REQUIRED")
		return nil, newValidation("provider order id, payment id and signature are required")
	}
	if uc.gateway == nil || !uc.gateway.VerifySignature(cmd.ProviderOrderID, cmd.ProviderPaymentID, cmd.Signature) {
		p.Fail("SIGNATURE_INVALID")
		return nil, newVerification("signature mismatch")
	}

	existing, found, err := uc.lookup(ctx, cmd)
	if err != nil {
		p.Fail("IDEMPOTENCY_LOOKUP_FAILED")
		return nil, err
	}
	if found {
		p.Note("IDEMPOTENT_REPLAY")
		return existing, nil
	}

	q, err := uc.checkout.quote(ctx, cmd.BuyerID, cmd.AddressID, cmd.Lines)
	if err != nil {
		p.Fail("QUOTE_FAILED")
		flagCapturedPayment(p, cmd, "quote_failed", err)
		return nil, err
	}

	intent, err := uc.gateway.FetchIntent(ctx, cmd.ProviderOrderID)
	if err != nil {
		p.Fail("INTENT_FETCH_FAILED")
		return nil, wrapGatewayError(err)
	}
	if err := uc.matchIntent(intent, cmd, q); err != nil {
		p.Fail("INTENT_MISMATCH")
		flagCapturedPayment(p, cmd, "intent_mismatch", err)
		return nil, err
	}

	entity, err := domain.New(domain.NewParams{
		ID:                uc.ids.NewID(),
		BuyerID:           cmd.BuyerID,
		Items:             q.items,
		ShippingAddress:   q.address,
		Method:            domain.PaymentCard,
		PaymentCaptured:   true,
		ProviderOrderID:   cmd.ProviderOrderID,
		ProviderPaymentID: cmd.ProviderPaymentID,
		Now:               uc.now(),
	})
	if err != nil {
		p.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, wrapDomainError(err)
	}

	if err := uc.checkout.reserve(ctx, entity.Items); err != nil {
		p.Fail("STOCK_RESERVE_FAILED")
		flagCapturedPayment(p, cmd, "stock_unavailable", err)
		return nil, err
	}

	if err := uc.orders.Insert(ctx, entity); err != nil {
		uc.checkout.release(ctx, entity.Items)
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent finalize for the same payment won the insert.
			if existing, found, lookupErr := uc.lookup(ctx, cmd); lookupErr == nil && found {
				p.Note("IDEMPOTENT_REPLAY")
				p.Span().AddEvent("order.idempotent_replay",
					trace.WithAttributes(attribute.String("order.id", existing.Order.ID)),
				)
				return existing, nil
			}
		}
		p.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	p.With(observability.F("order_id", entity.ID))
	p.Span().SetAttributes(attribute.String("order.id", entity.ID))

	uc.checkout.clearCart(ctx, cmd.BuyerID)
	uc.inst.Publish(ctx, uc.publisher, p, domain.NewOrderPlacedEvent(entity))

	return &FinalizePaymentResult{Order: entity}, nil
}

// flagCapturedPayment logs a verified payment that will not become an order.
// The provider has already captured it, so an operator must refund it.
func flagCapturedPayment(p *application.Execution, cmd FinalizePaymentInput, reason string, err error) {
	p.With(observability.F("refund_required", true))
	p.Logger().Error("paid_checkout_not_finalized",
		observability.F("provider_order_id", cmd.ProviderOrderID),
		observability.F("provider_payment_id", cmd.ProviderPaymentID),
		observability.F("buyer_id", cmd.BuyerID),
		observability.F("reason", reason),
		observability.F("refund_required", true),
		observability.F("error", err),
	)
}

func (uc *FinalizePaymentUseCase) lookup(ctx context.Context, cmd FinalizePaymentInput) (*FinalizePaymentResult, bool, error) {
	existing, err := uc.orders.FindByProviderPaymentID(ctx, cmd.ProviderPaymentID)
	switch {
	case err == nil:
		if existing.BuyerID != cmd.BuyerID {
			return nil, false, newNotFound("order")
		}
		return &FinalizePaymentResult{Order: existing, Replayed: true}, true, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, false, nil
	default:
		return nil, false, wrapRepositoryError(err)
	}
}

// matchIntent rejects a payment whose provider record disagrees with the recomputed checkout.
func (uc *FinalizePaymentUseCase) matchIntent(intent *dompayment.Intent, cmd FinalizePaymentInput, q *quote) error {
	if intent.ID != cmd.ProviderOrderID {
		return newVerification("intent id mismatch")
	}
	if want := q.totals.MinorUnits(); intent.AmountMinor != want {
		return newVerification("amount mismatch: provider %d, checkout %d", intent.AmountMinor, want)
	}
	if intent.Currency != "" && intent.Currency != uc.currency {
		return newVerification("currency mismatch: provider %s, checkout %s", intent.Currency, uc.currency)
	}
	if owner := intent.Notes["buyer_id"]; owner != "" && owner != cmd.BuyerID {
		return newVerification("intent belongs to another buyer")
	}
	return nil
}

package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	domaddress "github.com/Zhima-Mochi/minishop-fashion/internal/domain/address"
	domcart "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/payment/razorpay"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "rzp_secret"

var (
	buyer   = session.Session{UserID: "b-1", Role: session.RoleBuyer}
	seller  = session.Session{UserID: "s-1", Role: session.RoleOwner}
	another = session.Session{UserID: "s-2", Role: session.RoleOwner}
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fakeGateway struct {
	mu       sync.Mutex
	intents  map[string]*dompayment.Intent
	fetchErr error
	n        int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*dompayment.Intent)}
}

func (g *fakeGateway) CreateIntent(_ context.Context, req dompayment.IntentRequest) (*dompayment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	in := &dompayment.Intent{
		ID:          fmt.Sprintf("order_%d", g.n),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
		Notes:       req.Notes,
	}
	g.intents[in.ID] = in
	return in, nil
}

func (g *fakeGateway) FetchIntent(_ context.Context, id string) (*dompayment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	in, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("%w: intent %s not found", dompayment.ErrGateway, id)
	}
	c := *in
	return &c, nil
}

func (g *fakeGateway) VerifySignature(intentID, paymentID, signature string) bool {
	return razorpay.VerifySignature(testSecret, intentID, paymentID, signature)
}

func (g *fakeGateway) PublicKey() string { return "rzp_test_key" }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) named(name string) []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domoutbox.Event
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	orders  *memory.OrderRepository
	catalog *memory.CatalogRepository
	carts   *memory.CartRepository
	gateway *fakeGateway
	events  *recordingPublisher
	now     time.Time
	deps    Deps
	wf      *Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders: memory.NewOrderRepository(),
		catalog: memory.NewCatalogRepository(
			&domcatalog.Product{ID: "p-1", Name: "Block Print Kurta", Price: decimal.NewFromInt(500), Quantity: 5, Sizes: []string{"M", "L"}, OwnerID: "s-1"},
			&domcatalog.Product{ID: "p-2", Name: "Silk Scarf", Price: decimal.NewFromInt(90), Quantity: 2, OwnerID: "s-2"},
		),
		carts:   memory.NewCartRepository(),
		gateway: newFakeGateway(),
		events:  &recordingPublisher{},
		now:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.deps = Deps{
		Orders:  f.orders,
		Catalog: f.catalog,
		Carts:   f.carts,
		Addresses: memory.NewAddressRepository(
			domaddress.Address{ID: "a-1", BuyerID: "b-1", Name: "Asha", City: "Pune", PostalCode: "411001", Country: "IN"},
			domaddress.Address{ID: "a-2", BuyerID: "b-2", Name: "Ravi", City: "Delhi", Country: "IN"},
		),
		Gateway:   f.gateway,
		Publisher: f.events,
		IDs:       &seqIDs{},
		Now:       func() time.Time { return f.now },
	}
	f.wf = NewWorkflow(f.deps)
	return f
}

func (f *fixture) fillCart(t *testing.T, buyerID string, lines ...domcart.Line) {
	t.Helper()
	c := domcart.New(buyerID)
	for _, l := range lines {
		require.NoError(t, c.Add(l, f.now))
	}
	require.NoError(t, f.carts.Save(context.Background(), c))
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) placeCOD(t *testing.T, qty int) *domain.Order {
	t.Helper()
	res, err := f.wf.Place.Execute(context.Background(), PlaceOrderInput{
		BuyerID:       "b-1",
		Lines:         []LineInput{{ProductID: "p-1", Quantity: qty, Size: "M"}},
		AddressID:     "a-1",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	return res.Order
}

// payByCard opens an intent for the buyer's cart and finalizes it with a valid signature.
func (f *fixture) payByCard(t *testing.T, paymentID string) *FinalizePaymentResult {
	t.Helper()
	ctx := context.Background()
	placed, err := f.wf.Place.Execute(ctx, PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "card"})
	require.NoError(t, err)

	res, err := f.wf.Finalize.Execute(ctx, FinalizePaymentInput{
		BuyerID:           "b-1",
		ProviderOrderID:   placed.Intent.ProviderOrderID,
		ProviderPaymentID: paymentID,
		Signature:         razorpay.Sign(testSecret, placed.Intent.ProviderOrderID, paymentID),
		AddressID:         "a-1",
	})
	require.NoError(t, err)
	return res
}

func TestPlaceOrder_CashOnDeliveryReservesStockAndClearsCart(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 2, Size: "M"})

	res, err := f.wf.Place.Execute(context.Background(), PlaceOrderInput{
		BuyerID:       "b-1",
		AddressID:     "a-1",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Intent)

	o := res.Order
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, domain.PaymentPending, o.Payment.Status)
	assert.Equal(t, domain.PaymentCOD, o.Payment.Method)
	assert.True(t, decimal.NewFromInt(1000).Equal(o.Totals.Subtotal))
	assert.True(t, o.Totals.ShippingCost.IsZero())
	assert.True(t, decimal.NewFromInt(180).Equal(o.Totals.Tax))
	assert.True(t, decimal.NewFromInt(1180).Equal(o.Totals.Total))
	assert.Equal(t, "Pune", o.ShippingAddress.City)
	assert.Equal(t, "Block Print Kurta", o.Items[0].Name)

	assert.Equal(t, 3, f.stock(t, "p-1"))
	c, err := f.carts.Get(context.Background(), "b-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Len(t, f.events.named("order.placed"), 1)
}

func TestPlaceOrder_RejectsInvalidCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name string
		in   PlaceOrderInput
		want error
	}{
		{"unknown payment method", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "upi", Lines: []LineInput{{ProductID: "p-1", Quantity: 1}}}, ErrValidation},
		{"empty cart", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod"}, ErrValidation},
		{"unknown product", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod", Lines: []LineInput{{ProductID: "nope", Quantity: 1}}}, ErrValidation},
		{"zero quantity", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod", Lines: []LineInput{{ProductID: "p-1", Quantity: 0}}}, ErrValidation},
		{"insufficient stock", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod", Lines: []LineInput{{ProductID: "p-2", Quantity: 3}}}, ErrValidation},
		{"size not offered", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod", Lines: []LineInput{{ProductID: "p-1", Quantity: 1, Size: "XS"}}}, ErrValidation},
		{"missing address", PlaceOrderInput{BuyerID: "b-1", PaymentMethod: "cod", Lines: []LineInput{{ProductID: "p-1", Quantity: 1}}}, ErrValidation},
		{"address of another buyer", PlaceOrderInput{BuyerID: "b-1", AddressID: "a-2", PaymentMethod: "cod", Lines: []LineInput{{ProductID: "p-1", Quantity: 1}}}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.wf.Place.Execute(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, 5, f.stock(t, "p-1"))
	assert.Equal(t, 2, f.stock(t, "p-2"))
	assert.Empty(t, f.events.named("order.placed"))
}

func TestPlaceOrder_RejectsWholeCheckoutWhenOneLineIsSoldOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.wf.Place.Execute(ctx, PlaceOrderInput{
		BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod",
		Lines: []LineInput{{ProductID: "p-2", Quantity: 2}},
	})
	require.NoError(t, err)
	require.NotNil(t, first.Order)

	_, err = f.wf.Place.Execute(ctx, PlaceOrderInput{
		BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "cod",
		Lines: []LineInput{{ProductID: "p-1", Quantity: 1}, {ProductID: "p-2", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 5, f.stock(t, "p-1"))
	assert.Equal(t, 0, f.stock(t, "p-2"))
}

func TestPlaceOrder_CardOpensIntentWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 2, Size: "M"})

	res, err := f.wf.Place.Execute(ctx, PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Nil(t, res.Order)
	require.NotNil(t, res.Intent)
	assert.Equal(t, int64(118000), res.Intent.AmountMinor)
	assert.Equal(t, "INR", res.Intent.Currency)
	assert.Equal(t, "rzp_test_key", res.Intent.KeyID)
	assert.NotEmpty(t, res.Intent.Receipt)
	assert.True(t, decimal.NewFromInt(1180).Equal(res.Totals.Total))

	stored, err := f.gateway.FetchIntent(ctx, res.Intent.ProviderOrderID)
	require.NoError(t, err)
	assert.Equal(t, "b-1", stored.Notes["buyer_id"])

	orders, err := f.orders.ListByBuyer(ctx, "b-1", "")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 5, f.stock(t, "p-1"))
	c, err := f.carts.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.False(t, c.IsEmpty())
}

func TestFinalizePayment_RejectsForgedSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 1, Size: "M"})

	placed, err := f.wf.Place.Execute(ctx, PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = f.wf.Finalize.Execute(ctx, FinalizePaymentInput{
		BuyerID:           "b-1",
		ProviderOrderID:   placed.Intent.ProviderOrderID,
		ProviderPaymentID: "pay_1",
		Signature:         razorpay.Sign("wrong-secret", placed.Intent.ProviderOrderID, "pay_1"),
		AddressID:         "a-1",
	})
	assert.ErrorIs(t, err, ErrPaymentVerification)

	_, err = f.wf.Finalize.Execute(ctx, FinalizePaymentInput{
		BuyerID:         "b-1",
		ProviderOrderID: placed.Intent.ProviderOrderID,
		AddressID:       "a-1",
	})
	assert.ErrorIs(t, err, ErrValidation)

	orders, err := f.orders.ListByBuyer(ctx, "b-1", "")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 5, f.stock(t, "p-1"))
	c, err := f.carts.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
}

func TestFinalizePayment_PersistsOnceAndReplays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 2, Size: "M"})

	first := f.payByCard(t, "pay_1")
	require.False(t, first.Replayed)
	o := first.Order
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, domain.PaymentCard, o.Payment.Method)
	assert.Equal(t, domain.PaymentCompleted, o.Payment.Status)
	assert.Equal(t, "pay_1", o.Payment.ProviderPaymentID)
	assert.True(t, decimal.NewFromInt(1180).Equal(o.Payment.Amount))
	assert.Equal(t, 3, f.stock(t, "p-1"))

	c, err := f.carts.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	again, err := f.wf.Finalize.Execute(ctx, FinalizePaymentInput{
		BuyerID:           "b-1",
		ProviderOrderID:   o.Payment.ProviderOrderID,
		ProviderPaymentID: "pay_1",
		Signature:         razorpay.Sign(testSecret, o.Payment.ProviderOrderID, "pay_1"),
		AddressID:         "a-1",
	})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, o.ID, again.Order.ID)

	orders, err := f.orders.ListByBuyer(ctx, "b-1", "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 3, f.stock(t, "p-1"))
	assert.Len(t, f.events.named("order.placed"), 1)
}

func TestFinalizePayment_RejectsAmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 2, Size: "M"})

	placed, err := f.wf.Place.Execute(ctx, PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = f.wf.Finalize.Execute(ctx, FinalizePaymentInput{
		BuyerID:           "b-1",
		ProviderOrderID:   placed.Intent.ProviderOrderID,
		ProviderPaymentID: "pay_1",
		Signature:         razorpay.Sign(testSecret, placed.Intent.ProviderOrderID, "pay_1"),
		Lines:             []LineInput{{ProductID: "p-1", Quantity: 1, Size: "M"}},
		AddressID:         "a-1",
	})
	assert.ErrorIs(t, err, ErrPaymentVerification)
	assert.Equal(t, 5, f.stock(t, "p-1"))
}

func TestFinalizePayment_GatewayFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 1, Size: "M"})

	placed, err := f.wf.Place.Execute(ctx, PlaceOrderInput{BuyerID: "b-1", AddressID: "a-1", PaymentMethod: "card"})
	require.NoError(t, err)
	f.gateway.fetchErr = fmt.Errorf("%w: status 503", dompayment.ErrGateway)

	_, err = f.wf.Finalize.Execute(ctx, FinalizePaymentInput{
		BuyerID:           "b-1",
		ProviderOrderID:   placed.Intent.ProviderOrderID,
		ProviderPaymentID: "pay_1",
		Signature:         razorpay.Sign(testSecret, placed.Intent.ProviderOrderID, "pay_1"),
		AddressID:         "a-1",
	})
	assert.ErrorIs(t, err, ErrPaymentGateway)
}

func TestCancelOrder_SecondCancelIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeCOD(t, 1)

	res, err := f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: o.ID, Actor: buyer})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCancelled)
	assert.Equal(t, domain.StatusCancelled, res.Order.Status)
	assert.Equal(t, ReasonBuyerRequest, res.Order.CancelReason)

	res, err = f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: o.ID, Actor: buyer})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCancelled)

	events := f.events.named("order.cancelled")
	require.Len(t, events, 1)
	evt := events[0].(domain.OrderCancelledEvent)
	assert.Equal(t, o.ID, evt.OrderID)
	assert.False(t, evt.RefundRequired)
	assert.Equal(t, []domain.EventLine{{ProductID: "p-1", Quantity: 1}}, evt.Items)
}

func TestCancelOrder_VisibilityAndTerminalStates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeCOD(t, 1)

	stranger := session.Session{UserID: "b-2", Role: session.RoleBuyer}
	_, err := f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: o.ID, Actor: stranger})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: "missing", Actor: buyer})
	assert.ErrorIs(t, err, ErrNotFound)

	for _, next := range []string{"processing", "shipped"} {
		in := UpdateStatusInput{OrderID: o.ID, Status: next, Actor: seller}
		if next == "shipped" {
			in.Shipment = &ShipmentInput{TrackingNumber: "TRK1", Carrier: "Delhivery"}
		}
		_, err := f.wf.UpdateStatus.Execute(ctx, in)
		require.NoError(t, err)
	}

	_, err = f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: o.ID, Actor: buyer})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, f.events.named("order.cancelled"))
}

func TestUpdateStatus_FollowsLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeCOD(t, 1)

	_, err := f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "delivered", Actor: seller})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "lost", Actor: seller})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "processing", Actor: another})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "processing", Actor: seller})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	_, err = f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "shipped", Actor: seller})
	assert.ErrorIs(t, err, ErrValidation)

	got, err = f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{
		OrderID:  o.ID,
		Status:   "shipped",
		Shipment: &ShipmentInput{TrackingNumber: "TRK1", Carrier: "Delhivery"},
		Actor:    seller,
	})
	require.NoError(t, err)
	require.NotNil(t, got.Shipment)
	assert.Equal(t, f.now.Add(domain.EstimatedDeliveryWindow), got.Shipment.EstimatedDelivery)

	for _, next := range []domain.Status{domain.StatusDelivered, domain.StatusReturned} {
		got, err = f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: string(next), Actor: seller})
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}

	_, err = f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "returned", Actor: seller})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatus_CancelPublishesEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeCOD(t, 1)

	got, err := f.wf.UpdateStatus.Execute(ctx, UpdateStatusInput{OrderID: o.ID, Status: "cancelled", Actor: seller})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, ReasonSellerRequest, got.CancelReason)
	assert.Len(t, f.events.named("order.cancelled"), 1)
}

func TestMarkRefunded_OnlyForCapturedCancelledPayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "b-1", domcart.Line{ProductID: "p-1", Quantity: 1, Size: "M"})
	paid := f.payByCard(t, "pay_9").Order

	_, err := f.wf.MarkRefunded.Execute(ctx, MarkRefundedInput{OrderID: paid.ID, Actor: seller})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: paid.ID, Actor: buyer})
	require.NoError(t, err)
	events := f.events.named("order.cancelled")
	require.Len(t, events, 1)
	assert.True(t, events[0].(domain.OrderCancelledEvent).RefundRequired)

	got, err := f.wf.MarkRefunded.Execute(ctx, MarkRefundedInput{OrderID: paid.ID, Actor: seller})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, got.Payment.Status)

	_, err = f.wf.MarkRefunded.Execute(ctx, MarkRefundedInput{OrderID: paid.ID, Actor: seller})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cod := f.placeCOD(t, 1)
	_, err = f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: cod.ID, Actor: buyer})
	require.NoError(t, err)
	_, err = f.wf.MarkRefunded.Execute(ctx, MarkRefundedInput{OrderID: cod.ID, Actor: seller})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetOrder_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeCOD(t, 1)

	for _, actor := range []session.Session{buyer, seller, {}} {
		got, err := f.wf.Get.Execute(ctx, GetOrderInput{OrderID: o.ID, Actor: actor})
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
	}

	for _, actor := range []session.Session{another, {UserID: "b-2", Role: session.RoleBuyer}, {UserID: "anon"}} {
		_, err := f.wf.Get.Execute(ctx, GetOrderInput{OrderID: o.ID, Actor: actor})
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestListOrders_FiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for range 3 {
		f.placeCOD(t, 1)
	}
	first := f.placeCOD(t, 1)
	_, err := f.wf.Cancel.Execute(ctx, CancelOrderInput{OrderID: first.ID, Actor: buyer})
	require.NoError(t, err)

	all, err := f.wf.ListBuyer.Execute(ctx, ListBuyerOrdersInput{BuyerID: "b-1"})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	cancelled, err := f.wf.ListBuyer.Execute(ctx, ListBuyerOrdersInput{BuyerID: "b-1", Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)

	_, err = f.wf.ListBuyer.Execute(ctx, ListBuyerOrdersInput{BuyerID: "b-1", Status: "lost"})
	assert.ErrorIs(t, err, ErrValidation)

	page, err := f.wf.ListOwner.Execute(ctx, ListOwnerOrdersInput{OwnerID: "s-1", Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 3)
	assert.Equal(t, int64(4), page.TotalOrders)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.True(t, page.HasMore)

	page, err = f.wf.ListOwner.Execute(ctx, ListOwnerOrdersInput{OwnerID: "s-1", Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	assert.False(t, page.HasMore)

	page, err = f.wf.ListOwner.Execute(ctx, ListOwnerOrdersInput{OwnerID: "s-1", Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageLimit, page.Limit)

	page, err = f.wf.ListOwner.Execute(ctx, ListOwnerOrdersInput{OwnerID: "s-2"})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Equal(t, defaultPageLimit, page.Limit)
}

type fakeLocker struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

func TestReaper_CancelsStalePendingOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	pending := func(id string, age time.Duration) *domain.Order {
		created := f.now.Add(-age)
		return &domain.Order{
			ID:        id,
			BuyerID:   "b-1",
			Items:     []domain.Item{{ProductID: "p-1", OwnerID: "s-1", Quantity: 1, Price: decimal.NewFromInt(500)}},
			Payment:   domain.Payment{Method: domain.PaymentCard, Status: domain.PaymentPending},
			Status:    domain.StatusPending,
			CreatedAt: created,
			UpdatedAt: created,
		}
	}
	require.NoError(t, f.orders.Insert(ctx, pending("stale", 25*time.Hour)))
	require.NoError(t, f.orders.Insert(ctx, pending("fresh", time.Hour)))

	locker := &fakeLocker{}
	reaper := NewReaper(f.deps, locker, ReaperConfig{})

	n, err := reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)

	stale, err := f.orders.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stale.Status)
	assert.Equal(t, ReasonPaymentTimeout, stale.CancelReason)

	fresh, err := f.orders.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fresh.Status)

	n, err = reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.events.named("order.cancelled"), 1)
}

func TestReaper_SkipsTickWhenLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.now.Add(-48 * time.Hour)
	require.NoError(t, f.orders.Insert(ctx, &domain.Order{
		ID:        "stale",
		BuyerID:   "b-1",
		Items:     []domain.Item{{ProductID: "p-1", Quantity: 1}},
		Status:    domain.StatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}))

	reaper := NewReaper(f.deps, &fakeLocker{held: true}, ReaperConfig{})
	n, err := reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	o, err := f.orders.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestReaper_RunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	reaper := NewReaper(f.deps, nil, ReaperConfig{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
}

package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound                = errors.New("order: not found")
	ErrConflict                = errors.New("order: conflict")
	ErrInvalidStateTransition  = errors.New("order: invalid state transition")
	ErrEmptyItems              = errors.New("order: at least one item is required")
	ErrInvalidQuantity         = errors.New("order: quantity must be greater than zero")
	ErrInvalidPaymentMethod    = errors.New("order: unknown payment method")
	ErrUnknownStatus           = errors.New("order: unknown status")
	ErrShippingDetailsRequired = errors.New("order: tracking number and carrier are required to ship")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// ParseStatus accepts the lowercase wire form. Empty input yields "" with no error.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case "", StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return st, nil
	}
	return "", ErrUnknownStatus
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCOD  PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool { return m == PaymentCard || m == PaymentCOD }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// EstimatedDeliveryWindow is added to the ship time to set Shipment.EstimatedDelivery.
const EstimatedDeliveryWindow = 3 * 24 * time.Hour

// Item is a priced line snapshot taken from the catalog at order time.
type Item struct {
	ProductID string
	OwnerID   string
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Size      string
	Color     string
	Photo     string
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address is the immutable shipping address copied onto the order.
type Address struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type Payment struct {
	Method            PaymentMethod
	Status            PaymentStatus
	Amount            decimal.Decimal
	ProviderOrderID   string
	ProviderPaymentID string
}

type Shipment struct {
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery time.Time
}

type Order struct {
	ID              string
	BuyerID         string
	Items           []Item
	ShippingAddress Address
	Payment         Payment
	Totals          Totals
	Status          Status
	CancelReason    string
	Shipment        *Shipment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewParams carries everything needed to place an order. Totals are always
// derived from Items; callers cannot supply them.
type NewParams struct {
	ID              string
	BuyerID         string
	Items           []Item
	ShippingAddress Address
	Method          PaymentMethod
	// PaymentCaptured marks a card payment already verified with the provider.
	PaymentCaptured   bool
	ProviderOrderID   string
	ProviderPaymentID string
	Now               time.Time
}

// New builds a confirmed order. COD orders carry a pending payment; card orders
// are only created once the provider payment is captured.
func New(p NewParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range p.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if !p.Method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	totals := ComputeTotals(p.Items)
	payment := Payment{
		Method:            p.Method,
		Status:            PaymentPending,
		Amount:            totals.Total,
		ProviderOrderID:   p.ProviderOrderID,
		ProviderPaymentID: p.ProviderPaymentID,
	}
	if p.Method == PaymentCard {
		if !p.PaymentCaptured {
			return nil, ErrInvalidStateTransition
		}
		payment.Status = PaymentCompleted
	}

	return &Order{
		ID:              p.ID,
		BuyerID:         p.BuyerID,
		Items:           append([]Item(nil), p.Items...),
		ShippingAddress: p.ShippingAddress,
		Payment:         payment,
		Totals:          totals,
		Status:          StatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// TransitionTo moves the order along the lifecycle. Shipment is required when
// moving to shipped; reason is recorded when cancelling.
func (o *Order) TransitionTo(to Status, shipment *Shipment, reason string, now time.Time) error {
	current, err := stateFor(o.Status)
	if err != nil {
		return err
	}

	var next OrderState
	switch to {
	case StatusConfirmed:
		next, err = current.Confirm(o)
	case StatusProcessing:
		next, err = current.StartProcessing(o)
	case StatusShipped:
		if shipment == nil || shipment.TrackingNumber == "" || shipment.Carrier == "" {
			return ErrShippingDetailsRequired
		}
		s := *shipment
		s.EstimatedDelivery = now.UTC().Add(EstimatedDeliveryWindow)
		next, err = current.Ship(o, s)
	case StatusDelivered:
		next, err = current.Deliver(o)
	case StatusCancelled:
		next, err = current.Cancel(o, reason)
	case StatusReturned:
		next, err = current.Return(o)
	default:
		err = ErrInvalidStateTransition
	}
	if err != nil {
		return err
	}

	o.Status = next.Status()
	o.touch(now)
	return nil
}

// Cancel is shorthand for TransitionTo(StatusCancelled, ...).
func (o *Order) Cancel(reason string, now time.Time) error {
	return o.TransitionTo(StatusCancelled, nil, reason, now)
}

// Cancellable reports whether Cancel would succeed from the current status.
func (o *Order) Cancellable() bool {
	switch o.Status {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}

// RefundRequired reports a cancelled or returned order whose payment was captured.
func (o *Order) RefundRequired() bool {
	return (o.Status == StatusCancelled || o.Status == StatusReturned) &&
		o.Payment.Status == PaymentCompleted
}

// MarkRefunded records a manual refund performed by an operator.
func (o *Order) MarkRefunded(now time.Time) error {
	if !o.RefundRequired() {
		return ErrInvalidStateTransition
	}
	o.Payment.Status = PaymentRefunded
	o.touch(now)
	return nil
}

// HasOwner reports whether any line belongs to the given seller.
func (o *Order) HasOwner(ownerID string) bool {
	for _, it := range o.Items {
		if it.OwnerID == ownerID {
			return true
		}
	}
	return false
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	if o.Shipment != nil {
		s := *o.Shipment
		clone.Shipment = &s
	}
	return &clone
}

func (o *Order) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	o.UpdatedAt = now.UTC()
}

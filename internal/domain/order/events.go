package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventLine is the stock-relevant part of an order line.
type EventLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func eventLines(o *Order) []EventLine {
	out := make([]EventLine, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, EventLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// OrderPlacedEvent is emitted once an order has been persisted.
type OrderPlacedEvent struct {
	OrderID       string          `json:"order_id"`
	BuyerID       string          `json:"buyer_id"`
	Items         []EventLine     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:       o.ID,
		BuyerID:       o.BuyerID,
		Items:         eventLines(o),
		Total:         o.Totals.Total,
		PaymentMethod: o.Payment.Method,
		OccurredAt:    time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when an order moves to cancelled. Stock held
// by the order is released by its subscribers.
type OrderCancelledEvent struct {
	OrderID        string        `json:"order_id"`
	BuyerID        string        `json:"buyer_id"`
	Items          []EventLine   `json:"items"`
	Reason         string        `json:"reason"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	RefundRequired bool          `json:"refund_required"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:        o.ID,
		BuyerID:        o.BuyerID,
		Items:          eventLines(o),
		Reason:         o.CancelReason,
		PaymentMethod:  o.Payment.Method,
		RefundRequired: o.RefundRequired(),
		OccurredAt:     time.Now().UTC(),
	}
}

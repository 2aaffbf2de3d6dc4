package order

import (
	"context"
	"time"
)

// OwnerFilter narrows the seller-side listing. Page is 1-based.
type OwnerFilter struct {
	Status Status
	Page   int
	Limit  int
}

type OwnerPage struct {
	Orders []*Order
	Total  int64
}

type Repository interface {
	// Insert fails with ErrConflict on a duplicate id or provider payment id.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Update persists order only if the stored status still equals expected, else ErrConflict.
	Update(ctx context.Context, order *Order, expected Status) error
	FindByProviderPaymentID(ctx context.Context, paymentID string) (*Order, error)
	// ListByBuyer returns newest first. An empty status matches all.
	ListByBuyer(ctx context.Context, buyerID string, status Status) ([]*Order, error)
	ListByOwner(ctx context.Context, ownerID string, filter OwnerFilter) (OwnerPage, error)
	// ListStalePending returns pending orders created before the cutoff, oldest first.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*Order, error)
}

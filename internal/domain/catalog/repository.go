package catalog

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
	// Reserve decrements stock only if at least qty units remain (compare-and-swap),
	// returning ErrInsufficientStock otherwise. Stock never goes negative.
	Reserve(ctx context.Context, productID string, qty int) error
	// Release returns qty units to stock.
	Release(ctx context.Context, productID string, qty int) error
}

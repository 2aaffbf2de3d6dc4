package cart

import "context"

type Repository interface {
	// Get returns the buyer's cart, or an empty one if none was stored yet.
	Get(ctx context.Context, buyerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	// Clear empties the stored cart without deleting it.
	Clear(ctx context.Context, buyerID string) error
}

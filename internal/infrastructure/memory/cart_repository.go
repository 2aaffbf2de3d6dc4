package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
)

type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]*domain.Cart)}
}

func (r *CartRepository) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[buyerID]
	if !ok {
		return domain.New(buyerID), nil
	}
	return c.Clone(), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[c.BuyerID] = c.Clone()
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, buyerID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[buyerID]
	if !ok {
		c = domain.New(buyerID)
		r.carts[buyerID] = c
	}
	c.Clear(time.Now())
	return nil
}

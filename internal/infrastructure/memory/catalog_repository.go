package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewCatalogRepository(products ...*domain.Product) *CatalogRepository {
	r := &CatalogRepository{
		products: make(map[string]*domain.Product, len(products)),
	}
	for _, p := range products {
		r.products[p.ID] = p.Clone()
	}
	return r
}

// Put inserts or replaces a product.
func (r *CatalogRepository) Put(p *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p.Clone()
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *CatalogRepository) Reserve(ctx context.Context, productID string, qty int) error {
	_ = ctx
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	p.Quantity -= qty
	return nil
}

func (r *CatalogRepository) Release(ctx context.Context, productID string, qty int) error {
	_ = ctx
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Quantity += qty
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
)

type OrderRepository struct {
	mu        sync.RWMutex
	orders    map[string]*domain.Order
	byPayment map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:    make(map[string]*domain.Order),
		byPayment: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if pid := order.Payment.ProviderPaymentID; pid != "" {
		if _, exists := r.byPayment[pid]; exists {
			return domain.ErrConflict
		}
		r.byPayment[pid] = order.ID
	}

	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order, expected domain.Status) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if stored.Status != expected {
		return domain.ErrConflict
	}

	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) FindByProviderPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	_ = ctx
	if paymentID == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.byPayment[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string, status domain.Status) ([]*domain.Order, error) {
	return r.filter(ctx, func(o *domain.Order) bool {
		return o.BuyerID == buyerID && (status == "" || o.Status == status)
	}, newestFirst), nil
}

func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string, f domain.OwnerFilter) (domain.OwnerPage, error) {
	all := r.filter(ctx, func(o *domain.Order) bool {
		return o.HasOwner(ownerID) && (f.Status == "" || o.Status == f.Status)
	}, newestFirst)

	page := domain.OwnerPage{Total: int64(len(all))}
	start := (f.Page - 1) * f.Limit
	if f.Page < 1 || f.Limit < 1 || start >= len(all) {
		page.Orders = []*domain.Order{}
		return page, nil
	}
	end := min(start+f.Limit, len(all))
	page.Orders = all[start:end]
	return page, nil
}

func (r *OrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	out := r.filter(ctx, func(o *domain.Order) bool {
		return o.Status == domain.StatusPending && o.CreatedAt.Before(before)
	}, oldestFirst)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepository) filter(ctx context.Context, keep func(*domain.Order) bool, less func(a, b *domain.Order) bool) []*domain.Order {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b *domain.Order) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func oldestFirst(a, b *domain.Order) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

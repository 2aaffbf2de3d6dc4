package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/address"
)

type AddressRepository struct {
	mu        sync.RWMutex
	addresses map[string]domain.Address
}

func NewAddressRepository(addresses ...domain.Address) *AddressRepository {
	r := &AddressRepository{addresses: make(map[string]domain.Address, len(addresses))}
	for _, a := range addresses {
		r.addresses[a.ID] = a
	}
	return r
}

func (r *AddressRepository) Put(a domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[a.ID] = a
}

func (r *AddressRepository) FindForBuyer(ctx context.Context, buyerID, addressID string) (*domain.Address, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[addressID]
	if !ok || a.BuyerID != buyerID {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

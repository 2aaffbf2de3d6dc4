package order

import (
	"context"
	"testing"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutReserve_ReleasesEarlierLinesOnFailure(t *testing.T) {
	f := newFixture(t)
	co := checkout{catalog: f.catalog, carts: f.carts, addresses: f.deps.Addresses}

	err := co.reserve(context.Background(), []domain.Item{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-2", Quantity: 3},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 5, f.stock(t, "p-1"))
	assert.Equal(t, 2, f.stock(t, "p-2"))

	err = co.reserve(context.Background(), []domain.Item{{ProductID: "gone", Quantity: 1}})
	assert.ErrorIs(t, err, ErrValidation)
}

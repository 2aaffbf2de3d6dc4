package cart

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	catalog := memory.NewCatalogRepository(&domcatalog.Product{
		ID:       "p-1",
		Name:     "Linen Shirt",
		Price:    decimal.NewFromInt(500),
		Quantity: 3,
		Sizes:    []string{"S", "M"},
		Colors:   []string{"white"},
		OwnerID:  "s-1",
	})
	return NewService(memory.NewCartRepository(), catalog, nil)
}

func TestAddLine_MergesAndChecksStock(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	line := LineInput{BuyerID: "b-1", ProductID: "p-1", Quantity: 2, Size: "M", Color: "white"}

	c, err := svc.AddLine(ctx, line)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)

	line.Quantity = 1
	c, err = svc.AddLine(ctx, line)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)

	_, err = svc.AddLine(ctx, line)
	assert.ErrorIs(t, err, application.ErrValidation)
	assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)

	stored, err := svc.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Lines[0].Quantity)
}

func TestAddLine_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.AddLine(ctx, LineInput{BuyerID: "b-1", ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, application.ErrValidation)

	_, err = svc.AddLine(ctx, LineInput{BuyerID: "b-1", ProductID: "p-1", Quantity: 1, Size: "XXL"})
	assert.ErrorIs(t, err, domcatalog.ErrInvalidVariant)

	_, err = svc.AddLine(ctx, LineInput{BuyerID: "b-1", ProductID: "p-1", Quantity: 0})
	assert.ErrorIs(t, err, application.ErrValidation)

	_, err = svc.AddLine(ctx, LineInput{ProductID: "p-1", Quantity: 1})
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestUpdateAndRemoveLine(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	line := LineInput{BuyerID: "b-1", ProductID: "p-1", Quantity: 1, Size: "S"}

	_, err := svc.UpdateLine(ctx, line)
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, err = svc.AddLine(ctx, line)
	require.NoError(t, err)

	line.Quantity = 3
	c, err := svc.UpdateLine(ctx, line)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Lines[0].Quantity)

	line.Quantity = 4
	_, err = svc.UpdateLine(ctx, line)
	assert.ErrorIs(t, err, application.ErrValidation)

	c, err = svc.RemoveLine(ctx, line)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = svc.RemoveLine(ctx, line)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestGet_EmptyCartForNewBuyer(t *testing.T) {
	svc := newService()

	c, err := svc.Get(context.Background(), "b-9")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, application.ErrValidation)
}

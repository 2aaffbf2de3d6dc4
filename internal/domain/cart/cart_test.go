package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_MergesSameVariant(t *testing.T) {
	c := New("b-1")
	now := time.Now()

	require.NoError(t, c.Add(Line{ProductID: "p-1", Quantity: 1, Size: "M", Color: "red"}, now))
	require.NoError(t, c.Add(Line{ProductID: "p-1", Quantity: 2, Size: "M", Color: "red"}, now))
	require.NoError(t, c.Add(Line{ProductID: "p-1", Quantity: 1, Size: "L", Color: "red"}, now))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, "L", c.Lines[1].Size)
}

func TestAdd_RejectsZeroQuantity(t *testing.T) {
	c := New("b-1")
	assert.ErrorIs(t, c.Add(Line{ProductID: "p-1", Quantity: 0}, time.Now()), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestSetQuantityAndRemove(t *testing.T) {
	c := New("b-1")
	key := LineKey{ProductID: "p-1", Size: "S"}
	require.NoError(t, c.Add(Line{ProductID: "p-1", Quantity: 1, Size: "S"}, time.Now()))

	require.NoError(t, c.SetQuantity(key, 4, time.Now()))
	assert.Equal(t, 4, c.Lines[0].Quantity)
	assert.ErrorIs(t, c.SetQuantity(key, 0, time.Now()), ErrInvalidQuantity)
	assert.ErrorIs(t, c.SetQuantity(LineKey{ProductID: "p-2"}, 1, time.Now()), ErrLineNotFound)

	require.NoError(t, c.Remove(key, time.Now()))
	assert.True(t, c.IsEmpty())
	assert.ErrorIs(t, c.Remove(key, time.Now()), ErrLineNotFound)
}

func TestClear_KeepsCart(t *testing.T) {
	c := New("b-1")
	require.NoError(t, c.Add(Line{ProductID: "p-1", Quantity: 1}, time.Now()))
	c.Clear(time.Now())
	assert.True(t, c.IsEmpty())
	assert.Equal(t, "b-1", c.BuyerID)
}

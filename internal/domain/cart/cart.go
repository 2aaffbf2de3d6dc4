package cart

import (
	"errors"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be at least one")
	ErrLineNotFound    = errors.New("cart: line not found")
)

// LineKey identifies a cart line; a cart never holds two lines with the same key.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

type Line struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

func (l Line) Key() LineKey { return LineKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color} }

type Cart struct {
	BuyerID   string
	Lines     []Line
	UpdatedAt time.Time
}

// New returns the empty cart a buyer implicitly owns before the first add.
func New(buyerID string) *Cart {
	return &Cart{BuyerID: buyerID}
}

// Add merges into an existing line with the same key or appends a new one.
func (c *Cart) Add(l Line, now time.Time) error {
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].Key() == l.Key() {
			c.Lines[i].Quantity += l.Quantity
			c.UpdatedAt = now.UTC()
			return nil
		}
	}
	c.Lines = append(c.Lines, l)
	c.UpdatedAt = now.UTC()
	return nil
}

// SetQuantity overwrites the quantity of an existing line.
func (c *Cart) SetQuantity(key LineKey, qty int, now time.Time) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].Key() == key {
			c.Lines[i].Quantity = qty
			c.UpdatedAt = now.UTC()
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) Remove(key LineKey, now time.Time) error {
	for i := range c.Lines {
		if c.Lines[i].Key() == key {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = now.UTC()
			return nil
		}
	}
	return ErrLineNotFound
}

// Clear empties the cart; the cart itself survives.
func (c *Cart) Clear(now time.Time) {
	c.Lines = nil
	c.UpdatedAt = now.UTC()
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	return &clone
}

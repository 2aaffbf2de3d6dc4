package catalog

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrInvalidVariant    = errors.New("catalog: size or color not offered")
)

type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Category string
	Sizes    []string
	Colors   []string
	Photo    string
	OwnerID  string
}

// CheckVariant accepts an empty choice, or one the product lists. Products
// without a variant axis accept anything on that axis.
func (p *Product) CheckVariant(size, color string) error {
	if size != "" && len(p.Sizes) > 0 && !slices.Contains(p.Sizes, size) {
		return ErrInvalidVariant
	}
	if color != "" && len(p.Colors) > 0 && !slices.Contains(p.Colors, color) {
		return ErrInvalidVariant
	}
	return nil
}

// CheckAvailable reports whether qty units can be sold from current stock.
func (p *Product) CheckAvailable(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > p.Quantity {
		return ErrInsufficientStock
	}
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Sizes = append([]string(nil), p.Sizes...)
	c.Colors = append([]string(nil), p.Colors...)
	return &c
}

package address

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("address: not found")

type Address struct {
	ID         string
	BuyerID    string
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type Repository interface {
	// FindForBuyer returns ErrNotFound when the address is missing or owned by another buyer.
	FindForBuyer(ctx context.Context, buyerID, addressID string) (*Address, error)
}

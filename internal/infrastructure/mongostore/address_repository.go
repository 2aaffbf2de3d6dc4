package mongostore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/address"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type savedAddressDoc struct {
	ID         string `bson:"_id"`
	BuyerID    string `bson:"buyer_id"`
	Name       string `bson:"name"`
	Phone      string `bson:"phone"`
	Line1      string `bson:"line1"`
	Line2      string `bson:"line2,omitempty"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
}

type AddressRepository struct {
	collection *mongo.Collection
}

func NewAddressRepository(db *mongo.Database) *AddressRepository {
	return &AddressRepository{collection: db.Collection(addressesCollection)}
}

var _ domain.Repository = (*AddressRepository)(nil)

func (r *AddressRepository) Put(ctx context.Context, a domain.Address) error {
	doc := savedAddressDoc(a)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": a.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert address: %w", err)
	}
	return nil
}

func (r *AddressRepository) FindForBuyer(ctx context.Context, buyerID, addressID string) (*domain.Address, error) {
	var doc savedAddressDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": addressID, "buyer_id": buyerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	a := domain.Address(doc)
	return &a, nil
}

// Package mongostore implements the domain repositories on MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection    = "orders"
	productsCollection  = "products"
	cartsCollection     = "carts"
	addressesCollection = "addresses"
)

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// EnsureIndexes creates the indexes the stores rely on. The unique index on
// the provider payment id is what makes payment finalization idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	orderIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment.provider_payment_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_provider_payment_id"),
		},
		{
			Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "items.owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
		},
	}
	if _, err := db.Collection(ordersCollection).Indexes().CreateMany(ctx, orderIndexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	addressIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "buyer_id", Value: 1}}},
	}
	if _, err := db.Collection(addressesCollection).Indexes().CreateMany(ctx, addressIndexes); err != nil {
		return fmt.Errorf("failed to create address indexes: %w", err)
	}
	return nil
}

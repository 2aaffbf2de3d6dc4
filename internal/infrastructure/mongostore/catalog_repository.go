package mongostore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDoc struct {
	ID       string               `bson:"_id"`
	Name     string               `bson:"name"`
	Price    primitive.Decimal128 `bson:"price"`
	Quantity int                  `bson:"quantity"`
	Category string               `bson:"category"`
	Sizes    []string             `bson:"sizes,omitempty"`
	Colors   []string             `bson:"colors,omitempty"`
	Photo    string               `bson:"photo,omitempty"`
	OwnerID  string               `bson:"owner_id"`
}

type CatalogRepository struct {
	collection *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{collection: db.Collection(productsCollection)}
}

var _ domain.Repository = (*CatalogRepository)(nil)

// Put upserts a product. Used for seeding; the catalog is otherwise read-mostly.
func (r *CatalogRepository) Put(ctx context.Context, p *domain.Product) error {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return err
	}
	doc := productDoc{
		ID:       p.ID,
		Name:     p.Name,
		Price:    price,
		Quantity: p.Quantity,
		Category: p.Category,
		Sizes:    p.Sizes,
		Colors:   p.Colors,
		Photo:    p.Photo,
		OwnerID:  p.OwnerID,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	var doc productDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	price, err := fromDecimal128(doc.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Product{
		ID:       doc.ID,
		Name:     doc.Name,
		Price:    price,
		Quantity: doc.Quantity,
		Category: doc.Category,
		Sizes:    doc.Sizes,
		Colors:   doc.Colors,
		Photo:    doc.Photo,
		OwnerID:  doc.OwnerID,
	}, nil
}

func (r *CatalogRepository) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	filter := bson.M{"_id": productID, "quantity": bson.M{"$gte": qty}}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"quantity": -qty}})
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientStock
}

func (r *CatalogRepository) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": productID}, bson.M{"$inc": bson.M{"quantity": qty}})
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

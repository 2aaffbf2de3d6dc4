package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartLineDoc struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
	Size      string `bson:"size,omitempty"`
	Color     string `bson:"color,omitempty"`
}

type cartDoc struct {
	BuyerID   string        `bson:"_id"`
	Lines     []cartLineDoc `bson:"lines"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{collection: db.Collection(cartsCollection)}
}

var _ domain.Repository = (*CartRepository)(nil)

func (r *CartRepository) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	var doc cartDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": buyerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.New(buyerID), nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	c := &domain.Cart{BuyerID: doc.BuyerID, UpdatedAt: doc.UpdatedAt.UTC()}
	for _, l := range doc.Lines {
		c.Lines = append(c.Lines, domain.Line{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
		})
	}
	return c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	doc := cartDoc{BuyerID: c.BuyerID, Lines: make([]cartLineDoc, 0, len(c.Lines)), UpdatedAt: c.UpdatedAt}
	for _, l := range c.Lines {
		doc.Lines = append(doc.Lines, cartLineDoc{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
		})
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": c.BuyerID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, buyerID string) error {
	update := bson.M{"$set": bson.M{"lines": bson.A{}, "updated_at": time.Now().UTC()}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": buyerID}, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

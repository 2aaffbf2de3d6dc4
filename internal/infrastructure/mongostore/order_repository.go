package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderItemDoc struct {
	ProductID string               `bson:"product_id"`
	OwnerID   string               `bson:"owner_id"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
	Size      string               `bson:"size,omitempty"`
	Color     string               `bson:"color,omitempty"`
	Photo     string               `bson:"photo,omitempty"`
}

type addressDoc struct {
	Name       string `bson:"name"`
	Phone      string `bson:"phone"`
	Line1      string `bson:"line1"`
	Line2      string `bson:"line2,omitempty"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
}

type paymentDoc struct {
	Method          string               `bson:"method"`
	Status          string               `bson:"status"`
	Amount          primitive.Decimal128 `bson:"amount"`
	ProviderOrderID string               `bson:"provider_order_id,omitempty"`
	// omitempty keeps COD orders out of the sparse unique index.
	ProviderPaymentID string `bson:"provider_payment_id,omitempty"`
}

type totalsDoc struct {
	Subtotal     primitive.Decimal128 `bson:"subtotal"`
	ShippingCost primitive.Decimal128 `bson:"shipping_cost"`
	Tax          primitive.Decimal128 `bson:"tax"`
	Total        primitive.Decimal128 `bson:"total"`
}

type shipmentDoc struct {
	TrackingNumber    string    `bson:"tracking_number"`
	Carrier           string    `bson:"carrier"`
	EstimatedDelivery time.Time `bson:"estimated_delivery"`
}

type orderDoc struct {
	ID              string         `bson:"_id"`
	BuyerID         string         `bson:"buyer_id"`
	Items           []orderItemDoc `bson:"items"`
	ShippingAddress addressDoc     `bson:"shipping_address"`
	Payment         paymentDoc     `bson:"payment"`
	Totals          totalsDoc      `bson:"totals"`
	Status          string         `bson:"status"`
	CancelReason    string         `bson:"cancel_reason,omitempty"`
	Shipment        *shipmentDoc   `bson:"shipment,omitempty"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(ordersCollection)}
}

var _ domain.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	doc, err := toOrderDoc(order)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order, expected domain.Status) error {
	doc, err := toOrderDoc(order)
	if err != nil {
		return err
	}
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID, "status": string(expected)}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": order.ID})
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *OrderRepository) FindByProviderPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if paymentID == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"payment.provider_payment_id": paymentID})
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string, status domain.Status) ([]*domain.Order, error) {
	filter := bson.M{"buyer_id": buyerID}
	if status != "" {
		filter["status"] = string(status)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string, f domain.OwnerFilter) (domain.OwnerPage, error) {
	filter := bson.M{"items.owner_id": ownerID}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return domain.OwnerPage{}, fmt.Errorf("failed to count owner orders: %w", err)
	}
	page := domain.OwnerPage{Total: total, Orders: []*domain.Order{}}
	if f.Page < 1 || f.Limit < 1 {
		return page, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	orders, err := r.find(ctx, filter, opts)
	if err != nil {
		return domain.OwnerPage{}, err
	}
	page.Orders = orders
	return page, nil
}

func (r *OrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	filter := bson.M{
		"status":     string(domain.StatusPending),
		"created_at": bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDoc
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain()
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func toOrderDoc(o *domain.Order) (*orderDoc, error) {
	if o == nil || o.ID == "" {
		return nil, fmt.Errorf("order repository: id is required")
	}

	doc := &orderDoc{
		ID:      o.ID,
		BuyerID: o.BuyerID,
		Items:   make([]orderItemDoc, 0, len(o.Items)),
		ShippingAddress: addressDoc{
			Name:       o.ShippingAddress.Name,
			Phone:      o.ShippingAddress.Phone,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		Payment: paymentDoc{
			Method:            string(o.Payment.Method),
			Status:            string(o.Payment.Status),
			ProviderOrderID:   o.Payment.ProviderOrderID,
			ProviderPaymentID: o.Payment.ProviderPaymentID,
		},
		Status:       string(o.Status),
		CancelReason: o.CancelReason,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}

	var err error
	for _, it := range o.Items {
		item := orderItemDoc{
			ProductID: it.ProductID,
			OwnerID:   it.OwnerID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Photo:     it.Photo,
		}
		if item.Price, err = toDecimal128(it.Price); err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, item)
	}

	if doc.Payment.Amount, err = toDecimal128(o.Payment.Amount); err != nil {
		return nil, err
	}
	if doc.Totals.Subtotal, err = toDecimal128(o.Totals.Subtotal); err != nil {
		return nil, err
	}
	if doc.Totals.ShippingCost, err = toDecimal128(o.Totals.ShippingCost); err != nil {
		return nil, err
	}
	if doc.Totals.Tax, err = toDecimal128(o.Totals.Tax); err != nil {
		return nil, err
	}
	if doc.Totals.Total, err = toDecimal128(o.Totals.Total); err != nil {
		return nil, err
	}

	if o.Shipment != nil {
		doc.Shipment = &shipmentDoc{
			TrackingNumber:    o.Shipment.TrackingNumber,
			Carrier:           o.Shipment.Carrier,
			EstimatedDelivery: o.Shipment.EstimatedDelivery,
		}
	}
	return doc, nil
}

func (d *orderDoc) toDomain() (*domain.Order, error) {
	o := &domain.Order{
		ID:      d.ID,
		BuyerID: d.BuyerID,
		Items:   make([]domain.Item, 0, len(d.Items)),
		ShippingAddress: domain.Address{
			Name:       d.ShippingAddress.Name,
			Phone:      d.ShippingAddress.Phone,
			Line1:      d.ShippingAddress.Line1,
			Line2:      d.ShippingAddress.Line2,
			City:       d.ShippingAddress.City,
			State:      d.ShippingAddress.State,
			PostalCode: d.ShippingAddress.PostalCode,
			Country:    d.ShippingAddress.Country,
		},
		Payment: domain.Payment{
			Method:            domain.PaymentMethod(d.Payment.Method),
			Status:            domain.PaymentStatus(d.Payment.Status),
			ProviderOrderID:   d.Payment.ProviderOrderID,
			ProviderPaymentID: d.Payment.ProviderPaymentID,
		},
		Status:       domain.Status(d.Status),
		CancelReason: d.CancelReason,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}

	var err error
	for _, it := range d.Items {
		item := domain.Item{
			ProductID: it.ProductID,
			OwnerID:   it.OwnerID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Photo:     it.Photo,
		}
		if item.Price, err = fromDecimal128(it.Price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	if o.Payment.Amount, err = fromDecimal128(d.Payment.Amount); err != nil {
		return nil, err
	}
	if o.Totals.Subtotal, err = fromDecimal128(d.Totals.Subtotal); err != nil {
		return nil, err
	}
	if o.Totals.ShippingCost, err = fromDecimal128(d.Totals.ShippingCost); err != nil {
		return nil, err
	}
	if o.Totals.Tax, err = fromDecimal128(d.Totals.Tax); err != nil {
		return nil, err
	}
	if o.Totals.Total, err = fromDecimal128(d.Totals.Total); err != nil {
		return nil, err
	}

	if d.Shipment != nil {
		o.Shipment = &domain.Shipment{
			TrackingNumber:    d.Shipment.TrackingNumber,
			Carrier:           d.Shipment.Carrier,
			EstimatedDelivery: d.Shipment.EstimatedDelivery.UTC(),
		}
	}
	return o, nil
}

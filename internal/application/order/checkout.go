package order

import (
	"context"
	"errors"
	"fmt"

	domaddress "github.com/Zhima-Mochi/minishop-fashion/internal/domain/address"
	domcart "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
)

// LineInput is what the buyer asks for. Prices always come from the catalog.
type LineInput struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// quote is a priced, validated checkout ready to be persisted.
type quote struct {
	items   []domain.Item
	address domain.Address
	totals  domain.Totals
}

// checkout prices lines against the catalog and resolves the shipping address.
type checkout struct {
	catalog   domcatalog.Repository
	carts     domcart.Repository
	addresses domaddress.Repository
}

// resolveLines falls back to the buyer's cart when no lines were supplied.
func (c checkout) resolveLines(ctx context.Context, buyerID string, lines []LineInput) ([]LineInput, error) {
	if len(lines) > 0 {
		return lines, nil
	}
	cart, err := c.carts.Get(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load cart: %w", ErrRepository, err)
	}
	if cart.IsEmpty() {
		return nil, newValidation("cart is empty")
	}
	out := make([]LineInput, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		out = append(out, LineInput{ProductID: l.ProductID, Quantity: l.Quantity, Size: l.Size, Color: l.Color})
	}
	return out, nil
}

func (c checkout) quote(ctx context.Context, buyerID, addressID string, lines []LineInput) (*quote, error) {
	if buyerID == "" {
		return nil, newValidation("buyer id is required")
	}
	if addressID == "" {
		return nil, newValidation("shipping address is required")
	}

	lines, err := c.resolveLines(ctx, buyerID, lines)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(lines))
	products := make(map[string]*domcatalog.Product, len(lines))
	for _, l := range lines {
		item, p, err := c.price(ctx, l)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		products[p.ID] = p
	}
	if err := checkStock(items, products); err != nil {
		return nil, err
	}

	addr, err := c.addresses.FindForBuyer(ctx, buyerID, addressID)
	if err != nil {
		if errors.Is(err, domaddress.ErrNotFound) {
			return nil, newNotFound("shipping address")
		}
		return nil, fmt.Errorf("%w: load address: %w", ErrRepository, err)
	}

	return &quote{
		items:   items,
		address: snapshotAddress(addr),
		totals:  domain.ComputeTotals(items),
	}, nil
}

// price validates one line and snapshots the catalog price. Stock is checked
// per product afterwards by checkStock.
func (c checkout) price(ctx context.Context, l LineInput) (domain.Item, *domcatalog.Product, error) {
	if l.ProductID == "" {
		return domain.Item{}, nil, newValidation("product id is required")
	}
	if l.Quantity < 1 {
		return domain.Item{}, nil, newValidation("quantity for product %s must be at least 1", l.ProductID)
	}

	p, err := c.catalog.Get(ctx, l.ProductID)
	if err != nil {
		if errors.Is(err, domcatalog.ErrNotFound) {
			return domain.Item{}, nil, newValidation("product %s not found", l.ProductID)
		}
		return domain.Item{}, nil, fmt.Errorf("%w: load product: %w", ErrRepository, err)
	}
	if err := p.CheckVariant(l.Size, l.Color); err != nil {
		return domain.Item{}, nil, newValidation("product %s: %v", l.ProductID, err)
	}

	return domain.Item{
		ProductID: p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		Quantity:  l.Quantity,
		Price:     p.Price,
		Size:      l.Size,
		Color:     l.Color,
		Photo:     p.Photo,
	}, p, nil
}

// checkStock sums the requested quantity per product, so several sizes of one
// product cannot each pass against the same stock.
func checkStock(items []domain.Item, products map[string]*domcatalog.Product) error {
	requested := make(map[string]int, len(products))
	order := make([]string, 0, len(products))
	for _, it := range items {
		if _, seen := requested[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}
	for _, id := range order {
		if err := products[id].CheckAvailable(requested[id]); err != nil {
			return newValidation("product %s: %v (requested %d)", id, err, requested[id])
		}
	}
	return nil
}

// reserve takes stock for every item or none. On failure it releases what it
// already took.
func (c checkout) reserve(ctx context.Context, items []domain.Item) error {
	for i, it := range items {
		err := c.catalog.Reserve(ctx, it.ProductID, it.Quantity)
		if err == nil {
			continue
		}
		c.release(ctx, items[:i])
		switch {
		case errors.Is(err, domcatalog.ErrInsufficientStock):
			return newValidation("product %s: %v", it.ProductID, err)
		case errors.Is(err, domcatalog.ErrNotFound):
			return newValidation("product %s not found", it.ProductID)
		default:
			return fmt.Errorf("%w: reserve stock: %w", ErrRepository, err)
		}
	}
	return nil
}

func (c checkout) release(ctx context.Context, items []domain.Item) {
	logger := logctx.FromOr(ctx, observability.NopLogger())
	for _, it := range items {
		if err := c.catalog.Release(ctx, it.ProductID, it.Quantity); err != nil {
			logger.Error("stock_release_failed",
				observability.F("product_id", it.ProductID),
				observability.F("quantity", it.Quantity),
				observability.F("error", err),
			)
		}
	}
}

// clearCart is best-effort; the order is already placed.
func (c checkout) clearCart(ctx context.Context, buyerID string) {
	if err := c.carts.Clear(ctx, buyerID); err != nil {
		logctx.FromOr(ctx, observability.NopLogger()).Warn("cart_clear_failed",
			observability.F("buyer_id", buyerID),
			observability.F("error", err),
		)
	}
}

func snapshotAddress(a *domaddress.Address) domain.Address {
	return domain.Address{
		Name:       a.Name,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService     = "cart-service"
	useCaseGet      = "cart.get"
	useCaseAddLine  = "cart.add_line"
	useCaseSetLine  = "cart.update_line"
	useCaseDropLine = "cart.remove_line"
)

// LineInput addresses one cart line. Quantity is ignored on removal.
type LineInput struct {
	BuyerID   string
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

func (in LineInput) key() domain.LineKey {
	return domain.LineKey{ProductID: in.ProductID, Size: in.Size, Color: in.Color}
}

// Service groups the cart operations a buyer can call.
type Service struct {
	carts   domain.Repository
	catalog domcatalog.Repository
	now     func() time.Time
	inst    application.Instruments
}

func NewService(carts domain.Repository, catalog domcatalog.Repository, tel observability.Observability) *Service {
	return &Service{
		carts:   carts,
		catalog: catalog,
		now:     time.Now,
		inst:    application.NewInstruments(tel, cartService),
	}
}

func (s *Service) Get(ctx context.Context, buyerID string) (_ *domain.Cart, err error) {
	ctx, p := s.inst.Begin(ctx, useCaseGet, "GetCart", attribute.String("cart.buyer_id", buyerID))
	defer func() { p.End(err) }()

	if buyerID == "" {
		p.Fail("BUYER_ID_REQUIRED")
		return nil, fmt.Errorf("%w: buyer id is required", application.ErrValidation)
	}
	c, err := s.carts.Get(ctx, buyerID)
	if err != nil {
		p.Fail("REPO_GET_FAILED")
		return nil, err
	}
	p.With(observability.F("lines", len(c.Lines)))
	return c, nil
}

// AddLine merges into the line with the same product, size and color. The
// merged quantity must still be in stock.
func (s *Service) AddLine(ctx context.Context, in LineInput) (_ *domain.Cart, err error) {
	ctx, p := s.inst.Begin(ctx, useCaseAddLine, "AddCartLine",
		attribute.String("cart.buyer_id", in.BuyerID),
		attribute.String("cart.product_id", in.ProductID),
	)
	defer func() { p.End(err) }()

	if err := validateLine(in); err != nil {
		p.Fail("INPUT_INVALID")
		return nil, err
	}

	c, err := s.carts.Get(ctx, in.BuyerID)
	if err != nil {
		p.Fail("REPO_GET_FAILED")
		return nil, err
	}

	want := in.Quantity
	for _, l := range c.Lines {
		if l.Key() == in.key() {
			want += l.Quantity
		}
	}
	if err := s.checkProduct(ctx, in, want); err != nil {
		p.Fail("PRODUCT_REJECTED")
		return nil, err
	}

	if err := c.Add(domain.Line{ProductID: in.ProductID, Quantity: in.Quantity, Size: in.Size, Color: in.Color}, s.now()); err != nil {
		p.Fail("DOMAIN_REJECTED")
		return nil, mapCartError(err)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		p.Fail("REPO_SAVE_FAILED")
		return nil, err
	}
	return c, nil
}

// UpdateLine overwrites the quantity of an existing line.
func (s *Service) UpdateLine(ctx context.Context, in LineInput) (_ *domain.Cart, err error) {
	ctx, p := s.inst.Begin(ctx, useCaseSetLine, "UpdateCartLine",
		attribute.String("cart.buyer_id", in.BuyerID),
		attribute.String("cart.product_id", in.ProductID),
	)
	defer func() { p.End(err) }()

	if err := validateLine(in); err != nil {
		p.Fail("INPUT_INVALID")
		return nil, err
	}

	c, err := s.carts.Get(ctx, in.BuyerID)
	if err != nil {
		p.Fail("REPO_GET_FAILED")
		return nil, err
	}
	if err := s.checkProduct(ctx, in, in.Quantity); err != nil {
		p.Fail("PRODUCT_REJECTED")
		return nil, err
	}
	if err := c.SetQuantity(in.key(), in.Quantity, s.now()); err != nil {
		p.Fail("DOMAIN_REJECTED")
		return nil, mapCartError(err)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		p.Fail("REPO_SAVE_FAILED")
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveLine(ctx context.Context, in LineInput) (_ *domain.Cart, err error) {
	ctx, p := s.inst.Begin(ctx, useCaseDropLine, "RemoveCartLine",
		attribute.String("cart.buyer_id", in.BuyerID),
		attribute.String("cart.product_id", in.ProductID),
	)
	defer func() { p.End(err) }()

	if in.BuyerID == "" || in.ProductID == "" {
		p.Fail("INPUT_INVALID")
		return nil, fmt.Errorf("%w: buyer id and product id are required", application.ErrValidation)
	}

	c, err := s.carts.Get(ctx, in.BuyerID)
	if err != nil {
		p.Fail("REPO_GET_FAILED")
		return nil, err
	}
	if err := c.Remove(in.key(), s.now()); err != nil {
		p.Fail("DOMAIN_REJECTED")
		return nil, mapCartError(err)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		p.Fail("REPO_SAVE_FAILED")
		return nil, err
	}
	return c, nil
}

func (s *Service) checkProduct(ctx context.Context, in LineInput, qty int) error {
	prod, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, domcatalog.ErrNotFound) {
			return fmt.Errorf("%w: product %s not found", application.ErrValidation, in.ProductID)
		}
		return err
	}
	if err := prod.CheckVariant(in.Size, in.Color); err != nil {
		return fmt.Errorf("%w: product %s: %w", application.ErrValidation, in.ProductID, err)
	}
	if err := prod.CheckAvailable(qty); err != nil {
		return fmt.Errorf("%w: product %s: %w", application.ErrValidation, in.ProductID, err)
	}
	return nil
}

func validateLine(in LineInput) error {
	switch {
	case in.BuyerID == "":
		return fmt.Errorf("%w: buyer id is required", application.ErrValidation)
	case in.ProductID == "":
		return fmt.Errorf("%w: product id is required", application.ErrValidation)
	case in.Quantity < 1:
		return fmt.Errorf("%w: %w", application.ErrValidation, domain.ErrInvalidQuantity)
	}
	return nil
}

func mapCartError(err error) error {
	switch {
	case errors.Is(err, domain.ErrLineNotFound):
		return fmt.Errorf("%w: %w", application.ErrNotFound, err)
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fmt.Errorf("%w: %w", application.ErrValidation, err)
	default:
		return err
	}
}

package order

import (
	"context"
	"time"

	domaddress "github.com/Zhima-Mochi/minishop-fashion/internal/domain/address"
	domcart "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
)

const (
	orderService    = "order-service"
	defaultCurrency = "INR"
)

type IDGenerator interface {
	NewID() string
}

// Locker guards work that must run on one instance at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

// Deps are the collaborators shared by the order use cases.
type Deps struct {
	Orders    domain.Repository
	Catalog   domcatalog.Repository
	Carts     domcart.Repository
	Addresses domaddress.Repository
	Gateway   dompayment.Gateway
	Publisher domoutbox.Publisher
	IDs       IDGenerator
	Tel       observability.Observability

	// Currency is sent to the gateway with every intent. Defaults to INR.
	Currency string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Tel == nil {
		d.Tel = observability.Nop()
	}
	if d.Currency == "" {
		d.Currency = defaultCurrency
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

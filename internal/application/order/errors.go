package order

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domaddress "github.com/Zhima-Mochi/minishop-fashion/internal/domain/address"
	domcatalog "github.com/Zhima-Mochi/minishop-fashion/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
)

var (
	ErrValidation          = application.ErrValidation
	ErrNotFound            = application.ErrNotFound
	ErrInvalidTransition   = application.ErrInvalidTransition
	ErrPaymentGateway      = application.ErrPaymentGateway
	ErrPaymentVerification = application.ErrPaymentVerification
	ErrRepository          = errors.New("order: repository failure")
)

func newValidation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func newNotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func newVerification(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPaymentVerification, fmt.Sprintf(format, args...))
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newNotFound("order")
	case errors.Is(err, domaddress.ErrNotFound):
		return newNotFound("address")
	case errors.Is(err, domcatalog.ErrNotFound):
		return newNotFound("product")
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

// wrapDomainError maps entity rule violations onto the taxonomy.
func wrapDomainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, domain.ErrShippingDetailsRequired),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrEmptyItems),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPaymentMethod):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return err
	}
}

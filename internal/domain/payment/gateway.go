package payment

import (
	"context"
	"errors"
)

var (
	// ErrGateway marks a failed, rejected or timed-out provider call.
	ErrGateway = errors.New("payment: gateway failure")
	// ErrVerification marks a signature or amount that does not match the provider's record.
	ErrVerification = errors.New("payment: verification failed")
)

// Intent is the provider-side order a client completes payment against.
type Intent struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
	Notes       map[string]string
}

type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Gateway is the payment provider port. Calls are attempted once.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	FetchIntent(ctx context.Context, intentID string) (*Intent, error)
	// VerifySignature is pure: it checks the provider signature over the intent and payment ids.
	VerifySignature(intentID, paymentID, signature string) bool
	// PublicKey is the key id the client checkout needs.
	PublicKey() string
}

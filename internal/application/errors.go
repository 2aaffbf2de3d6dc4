package application

import "errors"

// Error taxonomy shared by all use cases. Transports map these with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPaymentGateway      = errors.New("payment gateway failure")
	ErrPaymentVerification = errors.New("payment verification failed")
)

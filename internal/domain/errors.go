package domain

import "errors"

var (
	ErrSerializationFailure     = errors.New("serialization failure")
	ErrNotFound                 = errors.New("not found")
	ErrConflict                 = errors.New("conflict")
	ErrValidation               = errors.New("invalid input")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrCartLimitExceeded        = errors.New("cart limit exceeded")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
)

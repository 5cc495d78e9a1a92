package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrPaymentRefNotFound = errors.New("no booking with this payment reference")
)

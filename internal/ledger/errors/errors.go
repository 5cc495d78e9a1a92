package errors

import "errors"

var (
	ErrHoldNotFound = errors.New("reservation hold not found")

	ErrHoldReleased = errors.New("reservation hold already released")

	ErrLockHeld = errors.New("ledger lock held by another request")
)

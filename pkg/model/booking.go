package model

import (
	"time"
)

type BookingState string

const (
	BookingPendingApproval BookingState = "pending_approval"
	BookingPendingPayment  BookingState = "pending_payment"
	BookingRejected        BookingState = "rejected"
	BookingPaid            BookingState = "paid"
	BookingPaymentFailed   BookingState = "payment_failed"
	BookingExpired         BookingState = "expired"
)

// ConsumesCapacity reports whether a booking in this state occupies a unit
// of space-type capacity in the ledger. Paid bookings keep their unit: the
// space is genuinely occupied, not merely reserved.
func (s BookingState) ConsumesCapacity() bool {
	return s == BookingPendingApproval || s == BookingPendingPayment || s == BookingPaid
}

// IsTerminal reports whether no further transition is defined from this state.
func (s BookingState) IsTerminal() bool {
	switch s {
	case BookingRejected, BookingPaid, BookingPaymentFailed, BookingExpired:
		return true
	}
	return false
}

type Booking struct {
	ID            string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	CustomerID    string       `json:"customer_id" bson:"customer_id" validate:"required"`
	SpaceTypeID   string       `json:"space_type_id" bson:"space_type_id" validate:"required"`
	OwnerID       string       `json:"owner_id" bson:"owner_id" validate:"required"`
	StartTime     time.Time    `json:"start_time" bson:"start_time" validate:"required"`
	EndTime       time.Time    `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Amount        int64        `json:"amount" bson:"amount" validate:"min=0"`
	Currency      string       `json:"currency" bson:"currency" validate:"required,len=3"`
	State         BookingState `json:"state" bson:"state" validate:"required,oneof=pending_approval pending_payment rejected paid payment_failed expired"`
	HoldID        string       `json:"-" bson:"hold_id" validate:"required,uuid4"`
	PaymentRef    string       `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
	HoldExpiresAt time.Time    `json:"hold_expires_at" bson:"hold_expires_at" validate:"required"`
}

// BookingRequest is the payload accepted by the create-booking endpoint.
// The customer identity comes from the auth middleware, never the body.
type BookingRequest struct {
	SpaceTypeID string    `json:"space_type_id" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

package events

import "time"

// Booking lifecycle event types carried on the booking-events topic.
const (
	TypeBookingRequested     = "booking.requested"
	TypeBookingApproved      = "booking.approved"
	TypeBookingRejected      = "booking.rejected"
	TypeBookingPaid          = "booking.paid"
	TypeBookingPaymentFailed = "booking.payment_failed"
	TypeBookingExpired       = "booking.expired"
)

// Space-type event types carried on the space-type events topic. Listing
// management publishes these; the booking core consumes them to drop stale
// cache entries.
const (
	TypeSpaceTypeUpdated = "space_type.updated"
	TypeSpaceTypeDeleted = "space_type.deleted"
)

// SpaceTypeEvent signals that a space type's definition changed upstream.
type SpaceTypeEvent struct {
	EventType   string    `json:"event_type"`
	SpaceTypeID string    `json:"space_type_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingEvent is the payload published for every booking state change.
// RecipientID names the user the notification gateway should push to:
// the owner for requested, the customer for everything else.
type BookingEvent struct {
	EventType   string    `json:"event_type"`
	BookingID   string    `json:"booking_id"`
	CustomerID  string    `json:"customer_id"`
	OwnerID     string    `json:"owner_id"`
	SpaceTypeID string    `json:"space_type_id"`
	State       string    `json:"state"`
	RecipientID string    `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

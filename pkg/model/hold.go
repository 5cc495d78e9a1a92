package model

import "time"

// ReservationHold is one unit of space-type capacity claimed for a time
// window. A hold stays active while its booking is in a capacity-consuming
// state and is flipped to released exactly once when the booking leaves it.
type ReservationHold struct {
	ID          string     `bson:"_id" json:"id"`
	SpaceTypeID string     `bson:"space_type_id" json:"space_type_id"`
	StartTime   time.Time  `bson:"start_time" json:"start_time"`
	EndTime     time.Time  `bson:"end_time" json:"end_time"`
	Released    bool       `bson:"released" json:"released"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	ReleasedAt  *time.Time `bson:"released_at,omitempty" json:"released_at,omitempty"`
}

// LedgerLock is an advisory lock serializing ledger mutations for a single
// space-type. Uniqueness of _id makes acquisition atomic; expires_at lets a
// TTL index reap locks left behind by a crashed holder.
type LedgerLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

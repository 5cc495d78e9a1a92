package model

import "time"

// SpaceType describes one reservable category of a parking space: a fixed
// number of interchangeable units priced per hour. Listing management owns
// these documents; the booking core only reads them.
type SpaceType struct {
	ID           string    `json:"id" bson:"_id"`
	SpaceID      string    `json:"space_id" bson:"space_id"`
	OwnerID      string    `json:"owner_id" bson:"owner_id"`
	Label        string    `json:"label" bson:"label"`
	Capacity     int       `json:"capacity" bson:"capacity"`
	PricePerHour int64     `json:"price_per_hour" bson:"price_per_hour"`
	Currency     string    `json:"currency" bson:"currency"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

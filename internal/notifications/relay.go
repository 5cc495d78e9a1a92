package notifications

import (
	"context"
	"fmt"

	"parkly/internal/events"
	"parkly/pkg/kafka"
	"parkly/pkg/logger"
)

// Relay consumes booking events from Kafka and pushes each one to the
// recipient's hub sessions. Hash-by-key partitioning upstream keeps one
// booking's events in emit order through the relay.
type Relay struct {
	hub *Hub
	log *logger.Logger
}

func NewRelay(hub *Hub, log *logger.Logger) *Relay {
	return &Relay{
		hub: hub,
		log: log,
	}
}

// Handle is the kafka.MessageHandler for the booking-events topic. A
// payload that does not decode is permanent and goes to the DLQ; a decoded
// event with no recipient is dropped.
func (r *Relay) Handle(ctx context.Context, msg kafka.Message) error {
	var evt events.BookingEvent
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewPermanentError(
			fmt.Sprintf("undecodable booking event at offset %d", msg.Offset), err)
	}

	if evt.RecipientID == "" {
		r.log.Warn("booking event without recipient",
			"event_type", evt.EventType, "booking_id", evt.BookingID)
		return nil
	}

	r.hub.Notify(evt.RecipientID, evt)
	return nil
}

package events

import (
	"context"
	"time"

	"parkly/pkg/kafka"
	"parkly/pkg/logger"
)

const schemaVersion = "1"

// Publisher emits booking lifecycle events. Publishing is best-effort from
// the state machine's point of view: a failed publish is logged, never
// rolled back, because the booking document is the source of truth.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, evt BookingEvent) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

// PublishBookingEvent publishes keyed by booking id so all events of one
// booking land on the same partition in emit order.
func (p *kafkaPublisher) PublishBookingEvent(ctx context.Context, evt BookingEvent) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	msg := kafka.NewMessage().
		WithKey(evt.BookingID).
		WithValue(evt).
		WithEventID("").
		WithEventType(evt.EventType).
		WithSchemaVersion(schemaVersion).
		WithSource(p.source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("failed to publish booking event",
			"event_type", evt.EventType,
			"booking_id", evt.BookingID,
			"error", err,
		)
		return err
	}

	return nil
}

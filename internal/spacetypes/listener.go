package spacetypes

import (
	"context"
	"fmt"

	"parkly/internal/events"
	"parkly/pkg/kafka"
	"parkly/pkg/logger"
)

// Invalidator drops a cached space type so the next read goes to Mongo.
type Invalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// CacheListener consumes space-type events published by listing management
// and evicts the matching cache entry. Any change upstream invalidates; the
// listener does not care which field moved.
type CacheListener struct {
	cache Invalidator
	log   *logger.Logger
}

func NewCacheListener(cache Invalidator, log *logger.Logger) *CacheListener {
	return &CacheListener{
		cache: cache,
		log:   log,
	}
}

// Handle is the kafka.MessageHandler for the space-type events topic. A
// payload that does not decode is permanent and goes to the DLQ; a failed
// eviction is transient so the message is retried.
func (l *CacheListener) Handle(ctx context.Context, msg kafka.Message) error {
	var evt events.SpaceTypeEvent
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewPermanentError(
			fmt.Sprintf("undecodable space type event at offset %d", msg.Offset), err)
	}

	if evt.SpaceTypeID == "" {
		l.log.Warn("space type event without id", "event_type", evt.EventType)
		return nil
	}

	if err := l.cache.Invalidate(ctx, evt.SpaceTypeID); err != nil {
		return kafka.NewTransientError(
			fmt.Sprintf("evicting space type %s from cache", evt.SpaceTypeID), err)
	}

	l.log.Info("space type cache entry evicted",
		"space_type_id", evt.SpaceTypeID, "event_type", evt.EventType)
	return nil
}

package spacetypes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"parkly/internal/events"
	"parkly/pkg/kafka"
	"parkly/pkg/logger"
)

type mockInvalidator struct {
	invalidateFunc func(ctx context.Context, id string) error
	invalidated    []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, id string) error {
	m.invalidated = append(m.invalidated, id)
	if m.invalidateFunc != nil {
		return m.invalidateFunc(ctx, id)
	}
	return nil
}

func testListenerLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: logger.JSON, AddSource: false, Service: "test"})
}

func spaceTypeEventMessage(t *testing.T, spaceTypeID string) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(events.SpaceTypeEvent{
		EventType:   events.TypeSpaceTypeUpdated,
		SpaceTypeID: spaceTypeID,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return kafka.Message{Key: spaceTypeID, Value: payload, Headers: map[string]string{}}
}

func TestCacheListener_EvictsOnSpaceTypeEvent(t *testing.T) {
	cache := &mockInvalidator{}
	listener := NewCacheListener(cache, testListenerLogger())

	if err := listener.Handle(context.Background(), spaceTypeEventMessage(t, "st-1")); err != nil {
		t.Fatalf("expected handle to succeed, got %v", err)
	}

	if len(cache.invalidated) != 1 || cache.invalidated[0] != "st-1" {
		t.Fatalf("expected st-1 to be evicted, got %v", cache.invalidated)
	}
}

func TestCacheListener_UndecodablePayloadIsPermanent(t *testing.T) {
	cache := &mockInvalidator{}
	listener := NewCacheListener(cache, testListenerLogger())

	msg := kafka.Message{Key: "st-1", Value: []byte("{not json"), Headers: map[string]string{}}

	err := listener.Handle(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error for undecodable payload")
	}
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if len(cache.invalidated) != 0 {
		t.Fatalf("expected no eviction, got %v", cache.invalidated)
	}
}

func TestCacheListener_EventWithoutIDIsDropped(t *testing.T) {
	cache := &mockInvalidator{}
	listener := NewCacheListener(cache, testListenerLogger())

	if err := listener.Handle(context.Background(), spaceTypeEventMessage(t, "")); err != nil {
		t.Fatalf("expected handle to drop event, got %v", err)
	}

	if len(cache.invalidated) != 0 {
		t.Fatalf("expected no eviction, got %v", cache.invalidated)
	}
}

func TestCacheListener_EvictionFailureIsTransient(t *testing.T) {
	cache := &mockInvalidator{
		invalidateFunc: func(ctx context.Context, id string) error {
			return errors.New("redis down")
		},
	}
	listener := NewCacheListener(cache, testListenerLogger())

	err := listener.Handle(context.Background(), spaceTypeEventMessage(t, "st-1"))
	if err == nil {
		t.Fatal("expected error when eviction fails")
	}
	if kafka.ClassifyError(err) != kafka.ErrorTypeTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
}

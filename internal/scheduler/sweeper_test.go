package scheduler

import (
	"context"
	"testing"
	"time"

	"parkly/pkg/config"
	"parkly/pkg/errors"
	"parkly/pkg/logger"
)

type mockExpiryService struct {
	DueForExpiryFunc func(ctx context.Context, now time.Time, limit int) ([]string, error)
	ExpireFunc       func(ctx context.Context, bookingID string) error
}

func (m *mockExpiryService) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return m.DueForExpiryFunc(ctx, now, limit)
}

func (m *mockExpiryService) Expire(ctx context.Context, bookingID string) error {
	return m.ExpireFunc(ctx, bookingID)
}

func testSweeper(svc ExpiryService) *Sweeper {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	cfg := &config.Config{SweepInterval: 10 * time.Millisecond}
	return NewSweeper(svc, cfg, log)
}

func TestSweep_ExpiresAllDueBookings(t *testing.T) {
	var expired []string
	svc := &mockExpiryService{
		DueForExpiryFunc: func(ctx context.Context, now time.Time, limit int) ([]string, error) {
			if limit != sweepBatchSize {
				t.Errorf("expected batch size %d, got %d", sweepBatchSize, limit)
			}
			return []string{"b-1", "b-2", "b-3"}, nil
		},
		ExpireFunc: func(ctx context.Context, bookingID string) error {
			expired = append(expired, bookingID)
			return nil
		},
	}

	testSweeper(svc).Sweep(context.Background())

	if len(expired) != 3 {
		t.Fatalf("expected 3 bookings expired, got %d", len(expired))
	}
}

func TestSweep_LostRaceSkipsBooking(t *testing.T) {
	var expired []string
	svc := &mockExpiryService{
		DueForExpiryFunc: func(ctx context.Context, now time.Time, limit int) ([]string, error) {
			return []string{"b-1", "b-2"}, nil
		},
		ExpireFunc: func(ctx context.Context, bookingID string) error {
			if bookingID == "b-1" {
				// Payment landed between the listing and the expiry attempt.
				return errors.InvalidTransition("booking cannot be expired", map[string]any{
					"booking_id":    bookingID,
					"current_state": "paid",
				})
			}
			expired = append(expired, bookingID)
			return nil
		},
	}

	testSweeper(svc).Sweep(context.Background())

	if len(expired) != 1 || expired[0] != "b-2" {
		t.Fatalf("expected b-2 expired despite b-1 losing the race, got %v", expired)
	}
}

func TestSweep_ErrorOnOneBookingContinues(t *testing.T) {
	var attempts []string
	svc := &mockExpiryService{
		DueForExpiryFunc: func(ctx context.Context, now time.Time, limit int) ([]string, error) {
			return []string{"b-1", "b-2", "b-3"}, nil
		},
		ExpireFunc: func(ctx context.Context, bookingID string) error {
			attempts = append(attempts, bookingID)
			if bookingID == "b-2" {
				return errors.Internal("database unavailable", nil)
			}
			return nil
		},
	}

	testSweeper(svc).Sweep(context.Background())

	if len(attempts) != 3 {
		t.Fatalf("expected all 3 bookings attempted, got %v", attempts)
	}
}

func TestSweep_ListFailureAbortsQuietly(t *testing.T) {
	svc := &mockExpiryService{
		DueForExpiryFunc: func(ctx context.Context, now time.Time, limit int) ([]string, error) {
			return nil, errors.Internal("database unavailable", nil)
		},
		ExpireFunc: func(ctx context.Context, bookingID string) error {
			t.Fatal("expire must not be called when listing fails")
			return nil
		},
	}

	testSweeper(svc).Sweep(context.Background())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	svc := &mockExpiryService{
		DueForExpiryFunc: func(ctx context.Context, now time.Time, limit int) ([]string, error) {
			return nil, nil
		},
		ExpireFunc: func(ctx context.Context, bookingID string) error {
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		testSweeper(svc).Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

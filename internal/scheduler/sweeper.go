// Package scheduler runs the background sweep that expires bookings whose
// hold window elapsed without reaching a terminal state.
package scheduler

import (
	"context"
	"time"

	"parkly/pkg/config"
	"parkly/pkg/errors"
	"parkly/pkg/logger"
)

const sweepBatchSize = 100

// ExpiryService is the slice of the booking service the sweeper needs.
type ExpiryService interface {
	DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error)
	Expire(ctx context.Context, bookingID string) error
}

// Sweeper periodically expires overdue bookings.
type Sweeper struct {
	bookings ExpiryService
	interval time.Duration
	logger   *logger.Logger
}

// NewSweeper creates a sweeper running at the configured interval.
func NewSweeper(bookings ExpiryService, cfg *config.Config, log *logger.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		interval: cfg.SweepInterval,
		logger:   log,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
// Registered with the application as a worker.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("reservation sweeper started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires every booking whose hold deadline has passed. A failure on
// one booking never aborts the rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	ids, err := s.bookings.DueForExpiry(ctx, now, sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to list overdue bookings", "error", err)
		return
	}

	if len(ids) == 0 {
		return
	}

	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}

		if err := s.bookings.Expire(ctx, id); err != nil {
			// A concurrent approve, rejection or payment winning the race is
			// expected; anything else deserves attention.
			if errors.HasCode(err, errors.CodeInvalidTransition) {
				s.logger.Debug("booking no longer expirable", "booking_id", id, "error", err)
				continue
			}
			s.logger.Error("failed to expire booking", "booking_id", id, "error", err)
			continue
		}
		expired++
	}

	s.logger.Info("sweep completed", "due", len(ids), "expired", expired)
}

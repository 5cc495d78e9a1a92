package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgererrors "parkly/internal/ledger/errors"
	"parkly/internal/ledger/repository"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// LedgerService is the space-type capacity ledger. Reserve and Release are
// the only ways capacity moves; state machine code never touches hold
// documents directly.
type LedgerService interface {
	Reserve(ctx context.Context, spaceType *model.SpaceType, start, end time.Time) (*model.ReservationHold, error)
	Release(ctx context.Context, holdID string) error
}

type ledgerService struct {
	holdRepo repository.HoldRepository
	lockRepo repository.LockRepository
	cfg      *config.Config
}

func NewLedgerService(
	holdRepo repository.HoldRepository,
	lockRepo repository.LockRepository,
	cfg *config.Config,
) LedgerService {
	return &ledgerService{
		holdRepo: holdRepo,
		lockRepo: lockRepo,
		cfg:      cfg,
	}
}

// Reserve claims one unit of the space-type's capacity for the window.
// Mutations for a space-type are serialized by an advisory lock, so the
// count-then-insert pair inside the transaction cannot interleave with a
// concurrent reserve on the same space-type. Different space-types never
// contend.
func (s *ledgerService) Reserve(ctx context.Context, spaceType *model.SpaceType, start, end time.Time) (*model.ReservationHold, error) {
	if spaceType == nil {
		return nil, apperrors.InvalidInput("Space type is required")
	}
	if !end.After(start) {
		return nil, apperrors.InvalidInput("End time must be after start time")
	}

	lockID, err := s.acquireLock(ctx, spaceType.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release ledger lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	hold := &model.ReservationHold{
		ID:          uuid.New().String(),
		SpaceTypeID: spaceType.ID,
		StartTime:   start,
		EndTime:     end,
		Released:    false,
	}

	err = s.holdRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		held, countErr := s.holdRepo.CountActiveOverlapping(sessCtx, spaceType.ID, start, end)
		if countErr != nil {
			return apperrors.Internal("Failed to count active holds", countErr)
		}

		if held >= int64(spaceType.Capacity) {
			return apperrors.CapacityExceeded(fmt.Sprintf(
				"No capacity left for space type %s in the requested window (%d/%d held)",
				spaceType.ID, held, spaceType.Capacity,
			))
		}

		if insertErr := s.holdRepo.Insert(sessCtx, hold); insertErr != nil {
			return apperrors.Internal("Failed to insert reservation hold", insertErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Reservation hold created",
		"hold_id", hold.ID,
		"space_type_id", spaceType.ID,
		"start_time", start,
		"end_time", end,
	)
	return hold, nil
}

// Release returns the hold's unit of capacity. Releasing an already
// released hold is a reported conflict, not a silent no-op: a double
// release means two transitions both believed they freed the unit.
func (s *ledgerService) Release(ctx context.Context, holdID string) error {
	if holdID == "" {
		return apperrors.InvalidInput("Hold ID cannot be empty")
	}

	err := s.holdRepo.Release(ctx, holdID)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrHoldNotFound) {
			return apperrors.NotFoundWithID("Reservation hold", holdID)
		}
		if errors.Is(err, ledgererrors.ErrHoldReleased) {
			return apperrors.Conflict(fmt.Sprintf("Reservation hold %s already released", holdID))
		}
		return apperrors.Internal("Failed to release reservation hold", err)
	}

	s.cfg.Log.Info("Reservation hold released", "hold_id", holdID)
	return nil
}

const lockRetryInterval = 10 * time.Millisecond

// acquireLock creates the space-type's advisory lock document. Uniqueness
// of _id makes acquisition atomic; expires_at lets the TTL index reap locks
// abandoned by a crashed holder. Contention is not an outcome of Reserve:
// the loser waits its turn and retries until the current holder's TTL, so
// a losing concurrent create still resolves to a hold or to
// CAPACITY_EXCEEDED, never to a lock failure.
func (s *ledgerService) acquireLock(ctx context.Context, spaceTypeID string) (string, error) {
	lockID := fmt.Sprintf("ledger_lock_%s", spaceTypeID)
	deadline := time.Now().Add(s.cfg.LockTTL)

	for {
		lock := &model.LedgerLock{
			ID:        lockID,
			ExpiresAt: time.Now().Add(s.cfg.LockTTL),
		}

		_, err := s.lockRepo.Create(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Internal("Failed to acquire ledger lock", err)
		}

		if time.Now().After(deadline) {
			return "", apperrors.Timeout(fmt.Sprintf(
				"Timed out waiting for the ledger lock on space type %s", spaceTypeID))
		}

		select {
		case <-ctx.Done():
			return "", apperrors.Timeout("Reservation cancelled while waiting for the ledger lock")
		case <-time.After(lockRetryInterval):
		}
	}
}

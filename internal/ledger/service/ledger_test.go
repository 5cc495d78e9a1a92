package service

import (
	"context"
	"testing"
	"time"

	ledgererrors "parkly/internal/ledger/errors"
	"parkly/pkg/config"
	mongotx "parkly/pkg/db/mongo"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// ────────────────────────────────────────────────
// Mock repositories for testing
// ────────────────────────────────────────────────

type mockHoldRepository struct {
	insertFunc  func(ctx context.Context, hold *model.ReservationHold) error
	countFunc   func(ctx context.Context, spaceTypeID string, start, end time.Time) (int64, error)
	releaseFunc func(ctx context.Context, id string) error
}

func (m *mockHoldRepository) Insert(ctx context.Context, hold *model.ReservationHold) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, hold)
	}
	return nil
}

func (m *mockHoldRepository) FindByID(ctx context.Context, id string) (*model.ReservationHold, error) {
	return nil, ledgererrors.ErrHoldNotFound
}

func (m *mockHoldRepository) CountActiveOverlapping(ctx context.Context, spaceTypeID string, start, end time.Time) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, spaceTypeID, start, end)
	}
	return 0, nil
}

func (m *mockHoldRepository) Release(ctx context.Context, id string) error {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, id)
	}
	return nil
}

func (m *mockHoldRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error)
	deleteFunc func(ctx context.Context, lockID string) error
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, lockID)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:     "error",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		LockTTL:      10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func testSpaceType(capacity int) *model.SpaceType {
	return &model.SpaceType{
		ID:           "st-1",
		SpaceID:      "sp-1",
		OwnerID:      "owner-1",
		Label:        "covered",
		Capacity:     capacity,
		PricePerHour: 500,
		Currency:     "USD",
	}
}

// ────────────────────────────────────────────────
// Tests for Reserve()
// ────────────────────────────────────────────────

func TestReserve_Succeeds(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(2 * time.Hour)

	var inserted *model.ReservationHold
	holdRepo := &mockHoldRepository{
		countFunc: func(ctx context.Context, spaceTypeID string, s, e time.Time) (int64, error) {
			return 2, nil
		},
		insertFunc: func(ctx context.Context, hold *model.ReservationHold) error {
			inserted = hold
			return nil
		},
	}

	svc := NewLedgerService(holdRepo, &mockLockRepository{}, testConfig())

	hold, err := svc.Reserve(context.Background(), testSpaceType(3), start, end)
	if err != nil {
		t.Fatalf("expected reserve to succeed, got %v", err)
	}
	if hold == nil || hold.ID == "" {
		t.Fatal("expected a hold with a generated id")
	}
	if inserted == nil {
		t.Fatal("expected hold to be inserted")
	}
	if inserted.SpaceTypeID != "st-1" {
		t.Errorf("expected hold for space type st-1, got %s", inserted.SpaceTypeID)
	}
	if inserted.Released {
		t.Error("new hold must not be released")
	}
}

func TestReserve_CapacityExceeded(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	insertCalled := false
	holdRepo := &mockHoldRepository{
		countFunc: func(ctx context.Context, spaceTypeID string, s, e time.Time) (int64, error) {
			return 3, nil
		},
		insertFunc: func(ctx context.Context, hold *model.ReservationHold) error {
			insertCalled = true
			return nil
		},
	}

	svc := NewLedgerService(holdRepo, &mockLockRepository{}, testConfig())

	_, err := svc.Reserve(context.Background(), testSpaceType(3), start, end)
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if !apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
		t.Fatalf("expected CAPACITY_EXCEEDED, got %v", err)
	}
	if insertCalled {
		t.Error("no hold must be inserted when capacity is exhausted")
	}
}

func TestReserve_CapacityOne_SecondRequestRejected(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	held := int64(0)
	holdRepo := &mockHoldRepository{
		countFunc: func(ctx context.Context, spaceTypeID string, s, e time.Time) (int64, error) {
			return held, nil
		},
		insertFunc: func(ctx context.Context, hold *model.ReservationHold) error {
			held++
			return nil
		},
	}

	svc := NewLedgerService(holdRepo, &mockLockRepository{}, testConfig())
	spaceType := testSpaceType(1)

	if _, err := svc.Reserve(context.Background(), spaceType, start, end); err != nil {
		t.Fatalf("first reserve should succeed, got %v", err)
	}

	_, err := svc.Reserve(context.Background(), spaceType, start, end)
	if !apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
		t.Fatalf("second reserve on capacity-1 space type must fail with CAPACITY_EXCEEDED, got %v", err)
	}
	if held != 1 {
		t.Errorf("expected exactly one hold, got %d", held)
	}
}

func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000}},
	}
}

func TestReserve_WaitsOutLockContention(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	// The lock frees up on the third attempt; the loser must wait its
	// turn and then reserve normally.
	attempts := 0
	lockRepo := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error) {
			attempts++
			if attempts < 3 {
				return nil, duplicateKeyError()
			}
			return lock, nil
		},
	}

	svc := NewLedgerService(&mockHoldRepository{}, lockRepo, testConfig())

	hold, err := svc.Reserve(context.Background(), testSpaceType(3), start, end)
	if err != nil {
		t.Fatalf("expected reserve to succeed after lock contention, got %v", err)
	}
	if hold == nil {
		t.Fatal("expected a hold")
	}
	if attempts != 3 {
		t.Errorf("expected 3 lock attempts, got %d", attempts)
	}
}

func TestReserve_LockHeldPastTTLTimesOut(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	lockRepo := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error) {
			return nil, duplicateKeyError()
		},
	}

	cfg := testConfig()
	cfg.LockTTL = 30 * time.Millisecond
	svc := NewLedgerService(&mockHoldRepository{}, lockRepo, cfg)

	_, err := svc.Reserve(context.Background(), testSpaceType(3), start, end)
	if !apperrors.HasCode(err, apperrors.CodeTimeout) {
		t.Fatalf("expected TIMEOUT when the lock never frees, got %v", err)
	}
}

func TestReserve_LockReleasedAfterCapacityFailure(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	deleted := ""
	lockRepo := &mockLockRepository{
		deleteFunc: func(ctx context.Context, lockID string) error {
			deleted = lockID
			return nil
		},
	}
	holdRepo := &mockHoldRepository{
		countFunc: func(ctx context.Context, spaceTypeID string, s, e time.Time) (int64, error) {
			return 5, nil
		},
	}

	svc := NewLedgerService(holdRepo, lockRepo, testConfig())

	_, _ = svc.Reserve(context.Background(), testSpaceType(5), start, end)
	if deleted != "ledger_lock_st-1" {
		t.Errorf("expected advisory lock to be released, got %q", deleted)
	}
}

func TestReserve_InvalidWindow(t *testing.T) {
	start := time.Now().Add(time.Hour)

	svc := NewLedgerService(&mockHoldRepository{}, &mockLockRepository{}, testConfig())

	_, err := svc.Reserve(context.Background(), testSpaceType(3), start, start)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for empty window, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Tests for Release()
// ────────────────────────────────────────────────

func TestRelease_Succeeds(t *testing.T) {
	released := ""
	holdRepo := &mockHoldRepository{
		releaseFunc: func(ctx context.Context, id string) error {
			released = id
			return nil
		},
	}

	svc := NewLedgerService(holdRepo, &mockLockRepository{}, testConfig())

	if err := svc.Release(context.Background(), "hold-1"); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	if released != "hold-1" {
		t.Errorf("expected hold-1 to be released, got %q", released)
	}
}

func TestRelease_DoubleReleaseIsConflict(t *testing.T) {
	holdRepo := &mockHoldRepository{
		releaseFunc: func(ctx context.Context, id string) error {
			return ledgererrors.ErrHoldReleased
		},
	}

	svc := NewLedgerService(holdRepo, &mockLockRepository{}, testConfig())

	err := svc.Release(context.Background(), "hold-1")
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("double release must surface as CONFLICT, got %v", err)
	}
}

func TestRelease_UnknownHold(t *testing.T) {
	holdRepo := &mockHoldRepository{
		releaseFunc: func(ctx context.Context, id string) error {
			return ledgererrors.ErrHoldNotFound
		},
	}

	svc := NewLedgerService(holdRepo, &mockLockRepository{}, testConfig())

	err := svc.Release(context.Background(), "missing")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	ledgererrors "parkly/internal/ledger/errors"
	mongotx "parkly/pkg/db/mongo"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// memoryLedgerStore backs both repositories with shared in-memory maps so
// concurrent Reserve/Release calls interleave the way they would against a
// real collection: the advisory lock is a plain key whose insert fails with
// a duplicate-key error while held.
type memoryLedgerStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	locks map[string]bool
	holds map[string]*model.ReservationHold
}

func newMemoryLedgerStore() *memoryLedgerStore {
	return &memoryLedgerStore{
		locks: make(map[string]bool),
		holds: make(map[string]*model.ReservationHold),
	}
}

func (s *memoryLedgerStore) activeOverlapping(spaceTypeID string, start, end time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, h := range s.holds {
		if h.SpaceTypeID == spaceTypeID && !h.Released &&
			h.StartTime.Before(end) && h.EndTime.After(start) {
			n++
		}
	}
	return n
}

type memoryHoldRepository struct{ store *memoryLedgerStore }

func (r *memoryHoldRepository) Insert(ctx context.Context, hold *model.ReservationHold) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *hold
	r.store.holds[hold.ID] = &copied
	return nil
}

func (r *memoryHoldRepository) FindByID(ctx context.Context, id string) (*model.ReservationHold, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	hold, ok := r.store.holds[id]
	if !ok {
		return nil, ledgererrors.ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

func (r *memoryHoldRepository) CountActiveOverlapping(ctx context.Context, spaceTypeID string, start, end time.Time) (int64, error) {
	return r.store.activeOverlapping(spaceTypeID, start, end), nil
}

func (r *memoryHoldRepository) Release(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	hold, ok := r.store.holds[id]
	if !ok {
		return ledgererrors.ErrHoldNotFound
	}
	if hold.Released {
		return ledgererrors.ErrHoldReleased
	}
	hold.Released = true
	return nil
}

func (r *memoryHoldRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	return fn(nil)
}

type memoryLockRepository struct{ store *memoryLedgerStore }

func (r *memoryLockRepository) Create(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.locks[lock.ID] {
		return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	}
	r.store.locks[lock.ID] = true
	return lock, nil
}

func (r *memoryLockRepository) Delete(ctx context.Context, lockID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.locks, lockID)
	return nil
}

func memoryLedgerService(store *memoryLedgerStore, lockTTL time.Duration) LedgerService {
	cfg := testConfig()
	cfg.LockTTL = lockTTL
	return NewLedgerService(&memoryHoldRepository{store: store}, &memoryLockRepository{store: store}, cfg)
}

func TestReserve_ConcurrentCreatesCapacityOne(t *testing.T) {
	store := newMemoryLedgerStore()
	svc := memoryLedgerService(store, 2*time.Second)

	spaceType := testSpaceType(1)
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	const callers = 4
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), spaceType, start, end)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case apperrors.HasCode(err, apperrors.CodeCapacityExceeded):
			losers++
		default:
			t.Errorf("unexpected error from concurrent reserve: %v", err)
		}
	}

	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
	if losers != callers-1 {
		t.Errorf("expected %d CAPACITY_EXCEEDED losers, got %d", callers-1, losers)
	}
	if got := store.activeOverlapping(spaceType.ID, start, end); got != 1 {
		t.Errorf("expected one active hold, got %d", got)
	}
}

func TestLedger_RandomConcurrentSequencesKeepInvariant(t *testing.T) {
	store := newMemoryLedgerStore()
	svc := memoryLedgerService(store, 2*time.Second)

	spaceType := testSpaceType(3)
	capacity := int64(spaceType.Capacity)
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	const (
		workers    = 6
		iterations = 40
	)

	var violations sync.Map
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var owned []string

			for i := 0; i < iterations; i++ {
				if len(owned) == 0 || rng.Intn(100) < 60 {
					hold, err := svc.Reserve(context.Background(), spaceType, start, end)
					switch {
					case err == nil:
						owned = append(owned, hold.ID)
					case apperrors.HasCode(err, apperrors.CodeCapacityExceeded):
					default:
						violations.Store("reserve", err)
						return
					}
				} else {
					idx := rng.Intn(len(owned))
					if err := svc.Release(context.Background(), owned[idx]); err != nil {
						violations.Store("release", err)
						return
					}
					owned = append(owned[:idx], owned[idx+1:]...)
				}

				if held := store.activeOverlapping(spaceType.ID, start, end); held > capacity {
					violations.Store("capacity", held)
					return
				}
			}
		}(int64(w + 1))
	}
	wg.Wait()

	violations.Range(func(key, value any) bool {
		t.Errorf("invariant violated (%v): %v", key, value)
		return true
	})

	if held := store.activeOverlapping(spaceType.ID, start, end); held > capacity {
		t.Errorf("final held count %d exceeds capacity %d", held, capacity)
	}
}

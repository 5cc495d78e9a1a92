package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgererrors "parkly/internal/ledger/errors"
	"parkly/pkg/config"
	mongotx "parkly/pkg/db/mongo"
	"parkly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Reservation_holds"
)

// HoldRepository provides operations on reservation hold documents.
// CountActiveOverlapping and Insert are meant to run inside the same
// transaction, under the space-type's advisory lock.
type HoldRepository interface {
	Insert(ctx context.Context, hold *model.ReservationHold) error
	FindByID(ctx context.Context, id string) (*model.ReservationHold, error)
	CountActiveOverlapping(ctx context.Context, spaceTypeID string, start, end time.Time) (int64, error)
	Release(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoHoldRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoHoldRepository(cfg *config.Config) HoldRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHoldRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoHoldRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		// Inside a transaction - wrapping the SessionContext would break
		// transaction semantics.
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoHoldRepository) Insert(ctx context.Context, hold *model.ReservationHold) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	hold.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, hold); err != nil {
		return fmt.Errorf("failed to insert reservation hold: %w", err)
	}
	return nil
}

func (r *mongoHoldRepository) FindByID(ctx context.Context, id string) (*model.ReservationHold, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var hold model.ReservationHold
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledgererrors.ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to find reservation hold: %w", err)
	}
	return &hold, nil
}

// CountActiveOverlapping counts unreleased holds on the space-type whose
// window overlaps [start, end).
func (r *mongoHoldRepository) CountActiveOverlapping(ctx context.Context, spaceTypeID string, start, end time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"space_type_id": spaceTypeID,
		"released":      false,
		"start_time":    bson.M{"$lt": end},
		"end_time":      bson.M{"$gt": start},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count active holds: %w", err)
	}
	return count, nil
}

// Release flips released from false to true exactly once. A repeat release
// resolves to ErrHoldReleased, an unknown id to ErrHoldNotFound.
func (r *mongoHoldRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"_id": id, "released": false}
	update := bson.M{"$set": bson.M{"released": true, "released_at": now}}

	result := r.collection.FindOneAndUpdate(ctx, filter, update)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return findErr
			}
			return ledgererrors.ErrHoldReleased
		}
		return fmt.Errorf("failed to release reservation hold: %w", err)
	}
	return nil
}

func (r *mongoHoldRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

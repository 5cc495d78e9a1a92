package repository

import (
	"context"
	"time"

	"parkly/pkg/config"
	"parkly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Ledger_locks"

// LockRepository provides operations for per-space-type advisory locks.
type LockRepository interface {
	Create(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoLockRepository struct {
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// Create returns a duplicate key error when the lock is already held.
func (r *mongoLockRepository) Create(ctx context.Context, lock *model.LedgerLock) (*model.LedgerLock, error) {
	lock.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		return nil, err
	}

	return lock, nil
}

func (r *mongoLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}

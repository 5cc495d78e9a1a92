package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"parkly/pkg/logger"
	"parkly/pkg/model"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "space_type:"

// CachedSpaceTypeRepository fronts the Mongo read model with a Redis
// cache-aside. Cache failures degrade to the underlying repository, they
// never fail the read.
type CachedSpaceTypeRepository struct {
	inner SpaceTypeRepository
	redis *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedSpaceTypeRepository(inner SpaceTypeRepository, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedSpaceTypeRepository {
	return &CachedSpaceTypeRepository{
		inner: inner,
		redis: rdb,
		ttl:   ttl,
		log:   log,
	}
}

func (r *CachedSpaceTypeRepository) FindByID(ctx context.Context, id string) (*model.SpaceType, error) {
	key := cacheKeyPrefix + id

	cached, err := r.redis.Get(ctx, key).Result()
	if err == nil {
		var spaceType model.SpaceType
		if unmarshalErr := json.Unmarshal([]byte(cached), &spaceType); unmarshalErr == nil {
			return &spaceType, nil
		}
		r.log.Warn("discarding corrupt cache entry", "key", key)
		_ = r.redis.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn("space type cache read failed", "key", key, "error", err)
	}

	spaceType, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(spaceType); marshalErr == nil {
		if setErr := r.redis.Set(ctx, key, data, r.ttl).Err(); setErr != nil {
			r.log.Warn("space type cache write failed", "key", key, "error", setErr)
		}
	}

	return spaceType, nil
}

// Invalidate drops the cached entry, forcing the next read through to
// Mongo. Called when listing management signals a capacity change.
func (r *CachedSpaceTypeRepository) Invalidate(ctx context.Context, id string) error {
	return r.redis.Del(ctx, cacheKeyPrefix+id).Err()
}

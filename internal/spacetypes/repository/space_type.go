package repository

import (
	"context"
	"errors"
	"fmt"

	"parkly/pkg/config"
	"parkly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Space_types"
)

var ErrNotFound = errors.New("space type not found")

// SpaceTypeRepository is the read model for space types. Listing
// management owns the documents; the booking core never writes them.
type SpaceTypeRepository interface {
	FindByID(ctx context.Context, id string) (*model.SpaceType, error)
}

type mongoSpaceTypeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSpaceTypeRepository(cfg *config.Config) SpaceTypeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSpaceTypeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSpaceTypeRepository) FindByID(ctx context.Context, id string) (*model.SpaceType, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var spaceType model.SpaceType
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&spaceType)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find space type: %w", err)
	}

	return &spaceType, nil
}

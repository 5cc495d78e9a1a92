package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parkly/internal/migrations/mongo/validators"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		// The sweeper scans by state and hold deadline.
		{Keys: bson.D{
			{Key: "state", Value: 1},
			{Key: "hold_expires_at", Value: 1},
		}},
		// Reconciliation looks bookings up by gateway reference.
		{
			Keys: bson.D{{Key: "payment_ref", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetSparse(true),
		},
		{Keys: bson.D{
			{Key: "customer_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}

	SpaceTypesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "space_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	// The overlap count only ever touches active holds, so the index is
	// partial on released:false.
	ReservationHoldsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "space_type_id", Value: 1},
				{Key: "start_time", Value: 1},
				{Key: "end_time", Value: 1},
			},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"released": false}),
		},
	}

	// Stale locks are reaped at their expires_at timestamp.
	LedgerLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running Parkly Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Space_types": {
			Indexes:   SpaceTypesIndexes,
			Validator: validators.SpaceTypeValidator,
		},
		"Reservation_holds": {
			Indexes:   ReservationHoldsIndexes,
			Validator: validators.ReservationHoldValidator,
		},
		"Ledger_locks": {
			Indexes:   LedgerLocksIndexes,
			Validator: validators.LedgerLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}

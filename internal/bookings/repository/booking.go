package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "parkly/internal/bookings/errors"
	"parkly/pkg/config"
	"parkly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// BookingRepository persists booking documents. Every state change goes
// through one of the CAS methods: a filtered UpdateOne that matches only
// when the booking is still in the expected state, so racing transitions
// resolve to exactly one winner.
type BookingRepository interface {
	Insert(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*model.Booking, error)
	FindByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error)
	CountByCustomer(ctx context.Context, customerID string) (int64, error)
	CASTransition(ctx context.Context, id string, from, to model.BookingState) (bool, error)
	CASApprove(ctx context.Context, id string, paymentRef string) (bool, error)
	CASExpire(ctx context.Context, id string, now time.Time) (bool, error)
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByPaymentRef(ctx context.Context, paymentRef string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"payment_ref": paymentRef}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrPaymentRefNotFound
		}
		return nil, fmt.Errorf("failed to find booking by payment ref: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// CASTransition moves the booking from one state to another only when it
// is still in the expected state. Returns false when nothing matched.
func (r *mongoBookingRepository) CASTransition(ctx context.Context, id string, from, to model.BookingState) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "state": from}
	update := bson.M{"$set": bson.M{"state": to}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to transition booking: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// CASApprove performs pending_approval -> pending_payment and records the
// checkout payment reference in the same atomic update.
func (r *mongoBookingRepository) CASApprove(ctx context.Context, id string, paymentRef string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "state": model.BookingPendingApproval}
	update := bson.M{"$set": bson.M{
		"state":       model.BookingPendingPayment,
		"payment_ref": paymentRef,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to approve booking: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// CASExpire moves a capacity-consuming booking to expired, guarded by the
// hold deadline so a booking whose deadline has not passed never matches.
func (r *mongoBookingRepository) CASExpire(ctx context.Context, id string, now time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":             id,
		"state":           bson.M{"$in": []model.BookingState{model.BookingPendingApproval, model.BookingPendingPayment}},
		"hold_expires_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"state": model.BookingExpired}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to expire booking: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// FindDueForExpiry lists bookings still consuming capacity whose hold
// deadline has passed. Uses the (state, hold_expires_at) index.
func (r *mongoBookingRepository) FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"state":           bson.M{"$in": []model.BookingState{model.BookingPendingApproval, model.BookingPendingPayment}},
		"hold_expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "hold_expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode expired bookings: %w", err)
	}

	return bookings, nil
}

package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "parkly/internal/bookings/errors"
	"parkly/internal/bookings/repository"
	"parkly/internal/bookings/validator"
	"parkly/internal/events"
	ledgersvc "parkly/internal/ledger/service"
	spacetypes "parkly/internal/spacetypes/repository"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"

	"github.com/google/uuid"
)

// CheckoutClient opens a payment session with the external gateway and
// returns the payment reference the gateway will call back with.
type CheckoutClient interface {
	CreateSession(ctx context.Context, booking *model.Booking) (string, error)
}

// BookingService is the booking state machine. Every transition is a
// compare-and-set on the booking document; the loser of any race gets
// INVALID_TRANSITION, never a silent overwrite.
type BookingService interface {
	Create(ctx context.Context, customerID string, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string, actorID string) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	Approve(ctx context.Context, id string, actorID string) (*model.Booking, error)
	Reject(ctx context.Context, id string, actorID string) error
	MarkPaid(ctx context.Context, paymentRef string) error
	MarkPaymentFailed(ctx context.Context, paymentRef string) error
	Expire(ctx context.Context, id string) error
	DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	ledger     ledgersvc.LedgerService
	spaceTypes spacetypes.SpaceTypeRepository
	checkout   CheckoutClient
	publisher  events.Publisher
	validator  *validator.BookingValidator
	cfg        *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	ledger ledgersvc.LedgerService,
	spaceTypes spacetypes.SpaceTypeRepository,
	checkout CheckoutClient,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:       repo,
		ledger:     ledger,
		spaceTypes: spaceTypes,
		checkout:   checkout,
		publisher:  publisher,
		validator:  validator,
		cfg:        cfg,
	}
}

// Create reserves capacity first and persists the booking second. A ledger
// failure leaves no booking behind; an insert failure releases the hold so
// capacity cannot leak.
func (s *bookingService) Create(ctx context.Context, customerID string, req *model.BookingRequest) (*model.Booking, error) {
	if customerID == "" {
		return nil, apperrors.Unauthorized("Missing authenticated customer")
	}

	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}

	spaceType, err := s.spaceTypes.FindByID(ctx, req.SpaceTypeID)
	if err != nil {
		if errors.Is(err, spacetypes.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Space type", req.SpaceTypeID)
		}
		return nil, apperrors.Internal("Failed to load space type", err)
	}

	hold, err := s.ledger.Reserve(ctx, spaceType, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking := &model.Booking{
		ID:            uuid.New().String(),
		CustomerID:    customerID,
		SpaceTypeID:   spaceType.ID,
		OwnerID:       spaceType.OwnerID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Amount:        bookingAmount(spaceType, req.StartTime, req.EndTime),
		Currency:      spaceType.Currency,
		State:         model.BookingPendingApproval,
		HoldID:        hold.ID,
		HoldExpiresAt: now.Add(s.cfg.HoldDuration),
	}

	// The assembled document must pass the same schema the collection
	// validator enforces; a miss here means bad space-type data, and the
	// hold must not leak.
	if err := s.validator.ValidateBooking(booking); err != nil {
		if releaseErr := s.ledger.Release(ctx, hold.ID); releaseErr != nil {
			s.cfg.Log.Error("Failed to release hold after booking validation failure",
				"hold_id", hold.ID, "booking_id", booking.ID, "error", releaseErr)
		}
		return nil, apperrors.Validation("Invalid booking", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Insert(ctx, booking); err != nil {
		if releaseErr := s.ledger.Release(ctx, hold.ID); releaseErr != nil {
			s.cfg.Log.Error("Failed to release hold after insert failure",
				"hold_id", hold.ID, "booking_id", booking.ID, "error", releaseErr)
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.publish(ctx, booking, events.TypeBookingRequested, booking.OwnerID)

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"customer_id", customerID,
		"space_type_id", spaceType.ID,
		"hold_expires_at", booking.HoldExpiresAt,
	)
	return booking, nil
}

// GetByID returns the booking to its customer or the space-type owner.
func (s *bookingService) GetByID(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.CustomerID != actorID && booking.OwnerID != actorID {
		return nil, apperrors.Forbidden("Booking belongs to another user")
	}

	return booking, nil
}

func (s *bookingService) ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if customerID == "" {
		return nil, 0, apperrors.Unauthorized("Missing authenticated customer")
	}

	bookings, err := s.repo.FindByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}

	count, err := s.repo.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, count, nil
}

// Approve moves pending_approval -> pending_payment. The checkout session
// is created before the CAS: a session abandoned because expiry won the
// race is reaped by the gateway's own session expiry. An existing payment
// ref is reused so retried approvals stay idempotent at the gateway.
func (s *bookingService) Approve(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.OwnerID != actorID {
		return nil, apperrors.Forbidden("Only the space owner may approve a booking")
	}

	paymentRef := booking.PaymentRef
	if paymentRef == "" {
		paymentRef, err = s.checkout.CreateSession(ctx, booking)
		if err != nil {
			s.cfg.Log.Error("Failed to create checkout session", "booking_id", id, "error", err)
			return nil, apperrors.Unavailable("payment gateway")
		}
	}

	matched, err := s.repo.CASApprove(ctx, id, paymentRef)
	if err != nil {
		return nil, apperrors.Internal("Failed to approve booking", err)
	}
	if !matched {
		return nil, s.resolveTransitionFailure(ctx, id, model.BookingPendingApproval, model.BookingPendingPayment)
	}

	booking.State = model.BookingPendingPayment
	booking.PaymentRef = paymentRef

	s.publish(ctx, booking, events.TypeBookingApproved, booking.CustomerID)

	s.cfg.Log.Info("Booking approved", "id", id, "payment_ref", paymentRef)
	return booking, nil
}

// Reject moves pending_approval -> rejected and releases the hold.
func (s *bookingService) Reject(ctx context.Context, id string, actorID string) error {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if booking.OwnerID != actorID {
		return apperrors.Forbidden("Only the space owner may reject a booking")
	}

	matched, err := s.repo.CASTransition(ctx, id, model.BookingPendingApproval, model.BookingRejected)
	if err != nil {
		return apperrors.Internal("Failed to reject booking", err)
	}
	if !matched {
		return s.resolveTransitionFailure(ctx, id, model.BookingPendingApproval, model.BookingRejected)
	}

	s.releaseHold(ctx, booking, "reject")
	booking.State = model.BookingRejected
	s.publish(ctx, booking, events.TypeBookingRejected, booking.CustomerID)

	s.cfg.Log.Info("Booking rejected", "id", id)
	return nil
}

// MarkPaid moves pending_payment -> paid. The hold stays: the unit is now
// genuinely occupied, not merely reserved.
func (s *bookingService) MarkPaid(ctx context.Context, paymentRef string) error {
	booking, err := s.findByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}

	matched, err := s.repo.CASTransition(ctx, booking.ID, model.BookingPendingPayment, model.BookingPaid)
	if err != nil {
		return apperrors.Internal("Failed to mark booking paid", err)
	}
	if !matched {
		return s.resolveTransitionFailure(ctx, booking.ID, model.BookingPendingPayment, model.BookingPaid)
	}

	booking.State = model.BookingPaid
	s.publish(ctx, booking, events.TypeBookingPaid, booking.CustomerID)

	s.cfg.Log.Info("Booking paid", "id", booking.ID, "payment_ref", paymentRef)
	return nil
}

// MarkPaymentFailed moves pending_payment -> payment_failed and releases
// the hold.
func (s *bookingService) MarkPaymentFailed(ctx context.Context, paymentRef string) error {
	booking, err := s.findByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}

	matched, err := s.repo.CASTransition(ctx, booking.ID, model.BookingPendingPayment, model.BookingPaymentFailed)
	if err != nil {
		return apperrors.Internal("Failed to mark payment failed", err)
	}
	if !matched {
		return s.resolveTransitionFailure(ctx, booking.ID, model.BookingPendingPayment, model.BookingPaymentFailed)
	}

	s.releaseHold(ctx, booking, "payment_failed")
	booking.State = model.BookingPaymentFailed
	s.publish(ctx, booking, events.TypeBookingPaymentFailed, booking.CustomerID)

	s.cfg.Log.Info("Booking payment failed", "id", booking.ID, "payment_ref", paymentRef)
	return nil
}

// Expire is the scheduler's transition. The CAS filter carries the
// deadline guard, so an approve or payment that lands first simply makes
// this a losing (and harmless) attempt.
func (s *bookingService) Expire(ctx context.Context, id string) error {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	matched, err := s.repo.CASExpire(ctx, id, time.Now().UTC())
	if err != nil {
		return apperrors.Internal("Failed to expire booking", err)
	}
	if !matched {
		return s.resolveTransitionFailure(ctx, id, booking.State, model.BookingExpired)
	}

	s.releaseHold(ctx, booking, "expire")
	booking.State = model.BookingExpired
	s.publish(ctx, booking, events.TypeBookingExpired, booking.CustomerID)

	s.cfg.Log.Info("Booking expired", "id", id)
	return nil
}

// DueForExpiry lists ids of bookings whose hold deadline has passed.
func (s *bookingService) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error) {
	bookings, err := s.repo.FindDueForExpiry(ctx, now, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to scan for expired bookings", err)
	}

	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// --- Helpers ---

func (s *bookingService) findByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) findByPaymentRef(ctx context.Context, paymentRef string) (*model.Booking, error) {
	if paymentRef == "" {
		return nil, apperrors.InvalidInput("Payment reference cannot be empty")
	}

	booking, err := s.repo.FindByPaymentRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrPaymentRefNotFound) {
			return nil, apperrors.NotFoundWithID("Payment reference", paymentRef)
		}
		return nil, apperrors.Internal("Failed to retrieve booking by payment ref", err)
	}
	return booking, nil
}

// resolveTransitionFailure disambiguates a CAS miss: the booking either
// vanished (NOT_FOUND) or sits in a different state (INVALID_TRANSITION,
// with the current state in the details).
func (s *bookingService) resolveTransitionFailure(ctx context.Context, id string, from, to model.BookingState) error {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to resolve transition failure", err)
	}

	return apperrors.InvalidTransition(
		"Booking is no longer in a state that allows this action",
		map[string]any{
			"booking_id":     id,
			"current_state":  string(booking.State),
			"expected_state": string(from),
			"target_state":   string(to),
		},
	)
}

// releaseHold frees the booking's capacity unit after a winning CAS into a
// releasing state. Only the CAS winner reaches this call, so a failure here
// is a real inconsistency and is logged at error level.
func (s *bookingService) releaseHold(ctx context.Context, booking *model.Booking, cause string) {
	if err := s.ledger.Release(ctx, booking.HoldID); err != nil {
		s.cfg.Log.Error("Failed to release hold",
			"booking_id", booking.ID,
			"hold_id", booking.HoldID,
			"cause", cause,
			"error", err,
		)
	}
}

func (s *bookingService) publish(ctx context.Context, booking *model.Booking, eventType, recipientID string) {
	evt := events.BookingEvent{
		EventType:   eventType,
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		OwnerID:     booking.OwnerID,
		SpaceTypeID: booking.SpaceTypeID,
		State:       string(booking.State),
		RecipientID: recipientID,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		OccurredAt:  time.Now().UTC(),
	}

	if err := s.publisher.PublishBookingEvent(ctx, evt); err != nil {
		s.cfg.Log.Warn("Booking event not published",
			"event_type", eventType, "booking_id", booking.ID, "error", err)
	}
}

// bookingAmount prices the window at the space-type's hourly rate, rounding
// partial hours up.
func bookingAmount(spaceType *model.SpaceType, start, end time.Time) int64 {
	duration := end.Sub(start)
	hours := int64(duration / time.Hour)
	if duration%time.Hour != 0 {
		hours++
	}
	return hours * spaceType.PricePerHour
}

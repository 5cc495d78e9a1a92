package payments

import (
	"context"

	"parkly/internal/bookings/service"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

// ReconciliationService maps gateway outcomes onto booking transitions.
// Gateway callbacks arrive zero or more times and in any order; a callback
// landing on a booking that already reached a terminal state is a no-op
// success, so gateway retries stay harmless.
type ReconciliationService interface {
	HandleSuccess(ctx context.Context, paymentRef string) error
	HandleFailure(ctx context.Context, paymentRef string) error
}

type reconciliationService struct {
	bookings service.BookingService
	log      *logger.Logger
}

func NewReconciliationService(bookings service.BookingService, log *logger.Logger) ReconciliationService {
	return &reconciliationService{
		bookings: bookings,
		log:      log,
	}
}

func (s *reconciliationService) HandleSuccess(ctx context.Context, paymentRef string) error {
	err := s.bookings.MarkPaid(ctx, paymentRef)
	return s.absorbTerminal(err, paymentRef, "success")
}

func (s *reconciliationService) HandleFailure(ctx context.Context, paymentRef string) error {
	err := s.bookings.MarkPaymentFailed(ctx, paymentRef)
	return s.absorbTerminal(err, paymentRef, "failure")
}

// absorbTerminal swallows INVALID_TRANSITION only when the booking already
// sits in a terminal state. A callback against a booking still in
// pending_approval is a real protocol violation and keeps its error.
func (s *reconciliationService) absorbTerminal(err error, paymentRef, outcome string) error {
	if err == nil {
		return nil
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeInvalidTransition {
		return err
	}

	current, _ := appErr.Details["current_state"].(string)
	if model.BookingState(current).IsTerminal() {
		s.log.Info("Ignoring repeat payment callback on terminal booking",
			"payment_ref", paymentRef,
			"outcome", outcome,
			"current_state", current,
		)
		return nil
	}

	return err
}

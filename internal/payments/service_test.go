package payments

import (
	"context"
	"testing"
	"time"

	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

// Mock booking service for testing
type mockBookingService struct {
	markPaidFunc          func(ctx context.Context, paymentRef string) error
	markPaymentFailedFunc func(ctx context.Context, paymentRef string) error
}

func (m *mockBookingService) Create(ctx context.Context, customerID string, req *model.BookingRequest) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	return nil, 0, nil
}

func (m *mockBookingService) Approve(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingService) Reject(ctx context.Context, id string, actorID string) error {
	return nil
}

func (m *mockBookingService) MarkPaid(ctx context.Context, paymentRef string) error {
	if m.markPaidFunc != nil {
		return m.markPaidFunc(ctx, paymentRef)
	}
	return nil
}

func (m *mockBookingService) MarkPaymentFailed(ctx context.Context, paymentRef string) error {
	if m.markPaymentFailedFunc != nil {
		return m.markPaymentFailedFunc(ctx, paymentRef)
	}
	return nil
}

func (m *mockBookingService) Expire(ctx context.Context, id string) error { return nil }

func (m *mockBookingService) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func invalidTransition(currentState model.BookingState) error {
	return apperrors.InvalidTransition(
		"Booking is no longer in a state that allows this action",
		map[string]any{"current_state": string(currentState)},
	)
}

func TestHandleSuccess_PassesThrough(t *testing.T) {
	var gotRef string
	bookings := &mockBookingService{
		markPaidFunc: func(ctx context.Context, paymentRef string) error {
			gotRef = paymentRef
			return nil
		},
	}
	svc := NewReconciliationService(bookings, testLogger())

	if err := svc.HandleSuccess(context.Background(), "pay-1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if gotRef != "pay-1" {
		t.Errorf("expected pay-1, got %q", gotRef)
	}
}

func TestHandleSuccess_RepeatOnPaidIsNoOp(t *testing.T) {
	bookings := &mockBookingService{
		markPaidFunc: func(ctx context.Context, paymentRef string) error {
			return invalidTransition(model.BookingPaid)
		},
	}
	svc := NewReconciliationService(bookings, testLogger())

	if err := svc.HandleSuccess(context.Background(), "pay-1"); err != nil {
		t.Fatalf("a repeat success callback on a paid booking must be a no-op, got %v", err)
	}
}

func TestHandleSuccess_OnExpiredIsNoOp(t *testing.T) {
	bookings := &mockBookingService{
		markPaidFunc: func(ctx context.Context, paymentRef string) error {
			return invalidTransition(model.BookingExpired)
		},
	}
	svc := NewReconciliationService(bookings, testLogger())

	if err := svc.HandleSuccess(context.Background(), "pay-1"); err != nil {
		t.Fatalf("a success callback racing expiry must be absorbed, got %v", err)
	}
}

func TestHandleSuccess_OnPendingApprovalKeepsError(t *testing.T) {
	bookings := &mockBookingService{
		markPaidFunc: func(ctx context.Context, paymentRef string) error {
			return invalidTransition(model.BookingPendingApproval)
		},
	}
	svc := NewReconciliationService(bookings, testLogger())

	err := svc.HandleSuccess(context.Background(), "pay-1")
	if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("a callback before approval is a protocol violation, got %v", err)
	}
}

func TestHandleSuccess_UnknownRefKeepsError(t *testing.T) {
	bookings := &mockBookingService{
		markPaidFunc: func(ctx context.Context, paymentRef string) error {
			return apperrors.NotFoundWithID("Payment reference", paymentRef)
		},
	}
	svc := NewReconciliationService(bookings, testLogger())

	err := svc.HandleSuccess(context.Background(), "unknown")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestHandleFailure_RepeatOnFailedIsNoOp(t *testing.T) {
	bookings := &mockBookingService{
		markPaymentFailedFunc: func(ctx context.Context, paymentRef string) error {
			return invalidTransition(model.BookingPaymentFailed)
		},
	}
	svc := NewReconciliationService(bookings, testLogger())

	if err := svc.HandleFailure(context.Background(), "pay-1"); err != nil {
		t.Fatalf("a repeat failure callback must be a no-op, got %v", err)
	}
}

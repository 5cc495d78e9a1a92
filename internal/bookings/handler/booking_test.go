package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/middleware"
	"parkly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockBookingService struct {
	createFunc  func(ctx context.Context, customerID string, req *model.BookingRequest) (*model.Booking, error)
	getByIDFunc func(ctx context.Context, id string, actorID string) (*model.Booking, error)
	approveFunc func(ctx context.Context, id string, actorID string) (*model.Booking, error)
	rejectFunc  func(ctx context.Context, id string, actorID string) error
}

func (m *mockBookingService) Create(ctx context.Context, customerID string, req *model.BookingRequest) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, customerID, req)
	}
	return &model.Booking{ID: "b-1", State: model.BookingPendingApproval}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id, actorID)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Approve(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, id, actorID)
	}
	return &model.Booking{ID: id, State: model.BookingPendingPayment}, nil
}

func (m *mockBookingService) Reject(ctx context.Context, id string, actorID string) error {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, id, actorID)
	}
	return nil
}

func (m *mockBookingService) MarkPaid(ctx context.Context, paymentRef string) error { return nil }

func (m *mockBookingService) MarkPaymentFailed(ctx context.Context, paymentRef string) error {
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

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, testLogger()).RegisterRoutes(router)
	return router
}

func asUser(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}

func TestCreate_ReturnsCreated(t *testing.T) {
	var gotCustomer string
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, customerID string, req *model.BookingRequest) (*model.Booking, error) {
			gotCustomer = customerID
			return &model.Booking{ID: "b-1", CustomerID: customerID, State: model.BookingPendingApproval}, nil
		},
	}
	router := newRouter(svc)

	body, _ := json.Marshal(model.BookingRequest{
		SpaceTypeID: "st-1",
		StartTime:   time.Now().Add(time.Hour),
		EndTime:     time.Now().Add(2 * time.Hour),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
	req = asUser(req, "cust-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if gotCustomer != "cust-1" {
		t.Errorf("customer id must come from the auth context, got %q", gotCustomer)
	}
}

func TestCreate_InvalidBody(t *testing.T) {
	router := newRouter(&mockBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader([]byte("{not json")))
	req = asUser(req, "cust-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApprove_MapsErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"forbidden actor", apperrors.Forbidden("not the owner"), http.StatusForbidden},
		{"stale transition", apperrors.InvalidTransition("already expired", nil), http.StatusConflict},
		{"unknown booking", apperrors.NotFoundWithID("Booking", "b-404"), http.StatusNotFound},
		{"gateway down", apperrors.Unavailable("payment gateway"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				approveFunc: func(ctx context.Context, id string, actorID string) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			router := newRouter(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/b-1/approve", nil)
			req = asUser(req, "owner-1")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d (%s)", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReject_ReturnsNoContent(t *testing.T) {
	router := newRouter(&mockBookingService{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/b-1/reject", nil)
	req = asUser(req, "owner-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestGetByID_ReturnsBooking(t *testing.T) {
	svc := &mockBookingService{
		getByIDFunc: func(ctx context.Context, id string, actorID string) (*model.Booking, error) {
			return &model.Booking{ID: id, CustomerID: actorID}, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b-1", nil)
	req = asUser(req, "cust-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

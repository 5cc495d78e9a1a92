package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if !errors.Is(wrapped, originalErr) {
		t.Errorf("expected errors.Is to see through the wrapper")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "booking not found",
			},
			expected: "NOT_FOUND: booking not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestConflictCodesAreDistinguishable(t *testing.T) {
	capErr := CapacityExceeded("space type is fully booked for this window")
	staleErr := InvalidTransition("booking already expired", nil)

	if capErr.HTTPStatus != http.StatusConflict || staleErr.HTTPStatus != http.StatusConflict {
		t.Fatalf("both conflict kinds must map to 409")
	}
	if capErr.Code == staleErr.Code {
		t.Errorf("capacity and stale-action conflicts must carry distinct codes")
	}
}

func TestHasCode(t *testing.T) {
	err := CapacityExceeded("full")

	if !HasCode(err, CodeCapacityExceeded) {
		t.Errorf("expected HasCode to match %s", CodeCapacityExceeded)
	}
	if HasCode(err, CodeInvalidTransition) {
		t.Errorf("HasCode matched the wrong code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Errorf("HasCode matched a non-AppError")
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)

	if appErr.Code != CodeInternal {
		t.Errorf("expected plain errors to map to %s, got %s", CodeInternal, appErr.Code)
	}
	if !errors.Is(appErr, plain) {
		t.Errorf("expected the original error to be preserved")
	}

	original := Forbidden("not your space type")
	if AsAppError(original) != original {
		t.Errorf("expected AppError to pass through unchanged")
	}
}

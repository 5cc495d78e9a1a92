package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "parkly/pkg/errors"
)

func TestWriteError_CarriesErrorCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "capacity exceeded",
			err:        apperrors.CapacityExceeded("no capacity left"),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeCapacityExceeded,
		},
		{
			name: "invalid transition",
			err: apperrors.InvalidTransition("already acted on", map[string]any{
				"current_state": "expired",
			}),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeInvalidTransition,
		},
		{
			name:       "not found",
			err:        apperrors.NotFound("booking"),
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError failed: %v", err)
			}

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, body.Code)
			}
			if body.Error == "" {
				t.Error("expected a human-readable error message")
			}
		})
	}
}

func TestWriteError_BothConflictKindsDistinguishable(t *testing.T) {
	capacityRec := httptest.NewRecorder()
	transitionRec := httptest.NewRecorder()

	_ = WriteError(capacityRec, apperrors.CapacityExceeded("full"))
	_ = WriteError(transitionRec, apperrors.InvalidTransition("stale", nil))

	var capacityBody, transitionBody ErrorResponse
	_ = json.Unmarshal(capacityRec.Body.Bytes(), &capacityBody)
	_ = json.Unmarshal(transitionRec.Body.Bytes(), &transitionBody)

	if capacityRec.Code != transitionRec.Code {
		t.Fatalf("both conflict kinds should share HTTP 409, got %d and %d", capacityRec.Code, transitionRec.Code)
	}
	if capacityBody.Code == transitionBody.Code {
		t.Error("the error codes must distinguish the two conflict kinds")
	}
}

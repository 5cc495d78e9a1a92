package validator

import (
	"strings"
	"testing"
	"time"

	"parkly/pkg/logger"
	"parkly/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func TestValidateRequest(t *testing.T) {
	v := NewBookingValidator(testLogger())
	future := time.Now().Add(2 * time.Hour)

	tests := []struct {
		name    string
		req     *model.BookingRequest
		wantErr string
	}{
		{
			name: "valid request",
			req: &model.BookingRequest{
				SpaceTypeID: "st-1",
				StartTime:   future,
				EndTime:     future.Add(time.Hour),
			},
		},
		{
			name: "missing space type",
			req: &model.BookingRequest{
				StartTime: future,
				EndTime:   future.Add(time.Hour),
			},
			wantErr: "SpaceTypeID",
		},
		{
			name: "end before start",
			req: &model.BookingRequest{
				SpaceTypeID: "st-1",
				StartTime:   future.Add(time.Hour),
				EndTime:     future,
			},
			wantErr: "EndTime",
		},
		{
			name: "start in the past",
			req: &model.BookingRequest{
				SpaceTypeID: "st-1",
				StartTime:   time.Now().Add(-time.Hour),
				EndTime:     time.Now().Add(time.Hour),
			},
			wantErr: "StartTime",
		},
		{
			name: "zero-length window",
			req: &model.BookingRequest{
				SpaceTypeID: "st-1",
				StartTime:   future,
				EndTime:     future,
			},
			wantErr: "EndTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid request, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidshare/backend/internal/apperror"
)

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(context.Background(), rec, http.StatusCreated, "created", map[string]string{"id": "1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true || body["statusCode"] != float64(201) || body["message"] != "created" {
		t.Fatalf("unexpected envelope %v", body)
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		details int
	}{
		{
			name:    "validation with details",
			err:     apperror.Validation("fields are invalid", "title is required", "description is required"),
			status:  http.StatusBadRequest,
			message: "fields are invalid",
			details: 2,
		},
		{
			name:    "wrapped conflict",
			err:     errors.Join(errors.New("context"), apperror.New(apperror.KindConflict, "taken")),
			status:  http.StatusConflict,
			message: "taken",
		},
		{
			name:    "unclassified",
			err:     errors.New("dial tcp: refused"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(context.Background(), rec, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("expected %d got %d", tt.status, rec.Code)
			}
			var body ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.StatusCode != tt.status || body.Message != tt.message {
				t.Fatalf("unexpected envelope %+v", body)
			}
			if body.Errors == nil || len(body.Errors) != tt.details {
				t.Fatalf("expected %d details, got %v", tt.details, body.Errors)
			}
		})
	}
}

func TestStatusKeepsEmptyErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Status(context.Background(), rec, http.StatusTooManyRequests, "slow down")

	if rec.Body.String() != `{"statusCode":429,"message":"slow down","errors":[],"success":false}`+"\n" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

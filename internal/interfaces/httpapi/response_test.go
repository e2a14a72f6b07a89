package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, "Login successful", map[string]string{"uid": "u-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body["status"] != "success" || body["message"] != "Login successful" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key in success response")
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: invalid email or password", usecase.ErrUnauthorized))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body["status"] != "failed" || body["message"] != "Invalid email or password" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if _, ok := body["data"]; ok {
		t.Fatalf("did not expect data key in error response")
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]any
	_ = sonic.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != internalErrorMessage {
		t.Fatalf("internal error leaked: %v", body["message"])
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", usecase.ErrInvalidInput), http.StatusBadRequest},
		{onboarding.ErrFutureDateRejected, http.StatusBadRequest},
		{&onboarding.ValidationError{Fields: []string{"fullName"}}, http.StatusBadRequest},
		{fmt.Errorf("%w: x", usecase.ErrNotFound), http.StatusNotFound},
		{identity.ErrEmailAlreadyExists, http.StatusConflict},
		{onboarding.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("%w: anubis down", usecase.ErrDependencyUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapError(context.Background(), tt.err).HTTPStatus; got != tt.want {
			t.Fatalf("mapError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

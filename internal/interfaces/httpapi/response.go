package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"

	internalErrorMessage = "Internal server error"
)

type responseEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	w.Header().Set("Content-Type", "application/json")
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"failed","message":"Internal server error"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.B)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	ctx, span := startSpan(ctx, "httpapi.writeSuccess")
	defer span.End()

	writeJSON(ctx, w, status, responseEnvelope{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ctx, span := startSpan(ctx, "httpapi.writeError")
	defer span.End()

	mapped := mapError(ctx, err)
	message := internalErrorMessage
	if mapped.HTTPStatus != http.StatusInternalServerError {
		message = publicMessage(err)
	}
	writeJSON(ctx, w, mapped.HTTPStatus, responseEnvelope{
		Status:  statusFailed,
		Message: message,
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	ctx, span := startSpan(ctx, "httpapi.writeInternalError")
	defer span.End()

	writeJSON(ctx, w, http.StatusInternalServerError, responseEnvelope{
		Status:  statusFailed,
		Message: internalErrorMessage,
	})
}

func mapError(ctx context.Context, err error) mappedError {
	_, span := startSpan(ctx, "httpapi.mapError")
	defer span.End()

	switch {
	case errors.Is(err, usecase.ErrDependencyUnavailable):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "dependencyUnavailable"}
	case errors.Is(err, usecase.ErrUnauthorized):
		return mappedError{HTTPStatus: http.StatusUnauthorized, Reason: "unauthorized"}
	case errors.Is(err, usecase.ErrNotFound):
		return mappedError{HTTPStatus: http.StatusNotFound, Reason: "notFound"}
	case errors.Is(err, usecase.ErrConflict),
		errors.Is(err, identity.ErrEmailAlreadyExists),
		errors.Is(err, onboarding.ErrInvalidTransition):
		return mappedError{HTTPStatus: http.StatusConflict, Reason: "conflict"}
	case errors.Is(err, usecase.ErrInvalidInput),
		errors.Is(err, onboarding.ErrMissingRequiredField),
		errors.Is(err, onboarding.ErrFutureDateRejected),
		errors.Is(err, onboarding.ErrInvalidDate),
		errors.Is(err, onboarding.ErrInvalidGender):
		return mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError"}
	}
}

var sentinelPrefixes = []error{
	usecase.ErrInvalidInput,
	usecase.ErrNotFound,
	usecase.ErrUnauthorized,
	usecase.ErrConflict,
	usecase.ErrDependencyUnavailable,
}

// publicMessage drops the leading sentinel text from a wrapped error so the
// client sees "Invalid email or password" rather than "unauthorized: ...".
func publicMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	for _, sentinel := range sentinelPrefixes {
		if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != msg {
			msg = trimmed
			break
		}
	}
	if msg == "" {
		return internalErrorMessage
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

package usecase

import "errors"

// Sentinels returned by the services. Transports map them to status codes;
// wrapped detail after the sentinel text is safe to show to the patient.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	// ErrDependencyUnavailable marks failures of the identity provider or
	// profile store that a retry may fix.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

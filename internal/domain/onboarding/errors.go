package onboarding

import (
	"strings"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrMissingRequiredField = crerr.New("missing required field")
	ErrMissingUserContext   = crerr.New("missing user context")
	ErrFutureDateRejected   = crerr.New("future date rejected")
	ErrInvalidDate          = crerr.New("invalid date")
	ErrInvalidGender        = crerr.New("invalid gender")
	ErrInvalidTransition    = crerr.New("invalid step transition")
	ErrPickerState          = crerr.New("date picker is not in the expected state")
	ErrSubmissionInFlight   = crerr.New("submission already in flight")
	ErrSessionChanged       = crerr.New("session changed during submission")
)

// ValidationError lists the required draft fields that are still empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return ErrMissingRequiredField.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingRequiredField
}

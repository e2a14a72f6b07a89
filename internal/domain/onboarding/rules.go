package onboarding

import (
	"reflect"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	draftValidatorOnce sync.Once
	draftValidator     *validator.Validate
)

func getDraftValidator() *validator.Validate {
	draftValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		draftValidator = v
	})
	return draftValidator
}

// MissingRequiredFields returns the empty required fields in declaration order.
func MissingRequiredFields(draft ProfileDraft) []string {
	missing, _ := checkDraft(draft)
	return missing
}

// ValidateDraft reports a *ValidationError when required fields are blank.
func ValidateDraft(draft ProfileDraft) error {
	missing, invalid := checkDraft(draft)
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	if invalid != nil {
		return invalid
	}
	return nil
}

func checkDraft(draft ProfileDraft) ([]string, error) {
	err := getDraftValidator().Struct(draft.Normalize())
	if err == nil {
		return nil, nil
	}

	var validationErrs validator.ValidationErrors
	if !crerr.As(err, &validationErrs) {
		return nil, crerr.Wrap(err, "validate draft")
	}

	var (
		missing []string
		invalid error
	)
	for _, fieldErr := range validationErrs {
		if fieldErr.Tag() == "required" {
			missing = append(missing, fieldErr.Field())
			continue
		}
		if invalid == nil && fieldErr.Field() == "gender" {
			invalid = crerr.Wrapf(ErrInvalidGender, "%v", fieldErr.Value())
		}
	}
	return missing, invalid
}

// ValidateAndAdvance checks the draft and returns the step that follows current.
func ValidateAndAdvance(draft ProfileDraft, current Step) (Step, error) {
	if err := ValidateDraft(draft); err != nil {
		return current, err
	}
	switch current {
	case StepAccount:
		return StepPersonal, nil
	case StepPersonal:
		return StepHealth, nil
	default:
		return current, crerr.Wrapf(ErrInvalidTransition, "no step after %s", current)
	}
}

// Previous returns the step before current; Account has no predecessor.
func Previous(current Step) (Step, bool) {
	switch current {
	case StepPersonal:
		return StepAccount, true
	case StepHealth:
		return StepPersonal, true
	default:
		return current, false
	}
}

// RequiresUser reports whether a step may only be entered with a bound user id.
func RequiresUser(step Step) bool {
	return step == StepPersonal || step == StepHealth
}

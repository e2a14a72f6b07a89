package onboarding

import (
	"errors"
	"reflect"
	"testing"
)

func validDraft() ProfileDraft {
	return ProfileDraft{
		FullName:    "Ayu Lestari",
		DateOfBirth: "15/06/1990",
		NationalID:  "123",
		Gender:      GenderFemale,
	}
}

func TestValidateAndAdvance(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(ProfileDraft) ProfileDraft
		current   Step
		wantStep  Step
		wantErr   error
		wantField []string
	}{
		{
			name:     "personal advances to health",
			mutate:   func(d ProfileDraft) ProfileDraft { return d },
			current:  StepPersonal,
			wantStep: StepHealth,
		},
		{
			name:     "account advances to personal",
			mutate:   func(d ProfileDraft) ProfileDraft { return d },
			current:  StepAccount,
			wantStep: StepPersonal,
		},
		{
			name:      "missing full name",
			mutate:    func(d ProfileDraft) ProfileDraft { return d.WithFullName("") },
			current:   StepPersonal,
			wantStep:  StepPersonal,
			wantErr:   ErrMissingRequiredField,
			wantField: []string{"fullName"},
		},
		{
			name:      "whitespace counts as empty",
			mutate:    func(d ProfileDraft) ProfileDraft { return d.WithNationalID("   ") },
			current:   StepPersonal,
			wantStep:  StepPersonal,
			wantErr:   ErrMissingRequiredField,
			wantField: []string{"nationalId"},
		},
		{
			name:      "all required missing in order",
			mutate:    func(ProfileDraft) ProfileDraft { return ProfileDraft{Address: "Jl. Merdeka"} },
			current:   StepPersonal,
			wantStep:  StepPersonal,
			wantErr:   ErrMissingRequiredField,
			wantField: []string{"fullName", "dateOfBirth", "nationalId", "gender"},
		},
		{
			name:     "unknown gender",
			mutate:   func(d ProfileDraft) ProfileDraft { return d.WithGender("robot") },
			current:  StepPersonal,
			wantStep: StepPersonal,
			wantErr:  ErrInvalidGender,
		},
		{
			name:     "no step after health",
			mutate:   func(d ProfileDraft) ProfileDraft { return d },
			current:  StepHealth,
			wantStep: StepHealth,
			wantErr:  ErrInvalidTransition,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := ValidateAndAdvance(tc.mutate(validDraft()), tc.current)
			if next != tc.wantStep {
				t.Fatalf("unexpected step: got=%s want=%s", next, tc.wantStep)
			}
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantField == nil {
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !reflect.DeepEqual(validationErr.Fields, tc.wantField) {
				t.Fatalf("unexpected fields: got=%v want=%v", validationErr.Fields, tc.wantField)
			}
		})
	}
}

func TestValidateAndAdvanceScenarioMissingFullName(t *testing.T) {
	draft := ProfileDraft{DateOfBirth: "01/01/1990", NationalID: "123", Gender: GenderMale}

	_, err := ValidateAndAdvance(draft, StepPersonal)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(validationErr.Fields, []string{"fullName"}) {
		t.Fatalf("unexpected fields: %v", validationErr.Fields)
	}
}

func TestPrevious(t *testing.T) {
	if step, ok := Previous(StepHealth); !ok || step != StepPersonal {
		t.Fatalf("expected personal, got %s ok=%v", step, ok)
	}
	if step, ok := Previous(StepPersonal); !ok || step != StepAccount {
		t.Fatalf("expected account, got %s ok=%v", step, ok)
	}
	if _, ok := Previous(StepAccount); ok {
		t.Fatalf("account must have no predecessor")
	}
}

func TestParseGender(t *testing.T) {
	if g, ok := ParseGender(" Female "); !ok || g != GenderFemale {
		t.Fatalf("expected female, got %q ok=%v", g, ok)
	}
	if g, ok := ParseGender(""); !ok || g != GenderUnset {
		t.Fatalf("expected unset, got %q ok=%v", g, ok)
	}
	if _, ok := ParseGender("robot"); ok {
		t.Fatalf("expected robot to be rejected")
	}
}

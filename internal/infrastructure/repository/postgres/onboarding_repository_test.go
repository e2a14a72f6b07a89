package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	qb "github.com/riskibarqy/patient-onboarding/internal/platform/querybuilder"
)

func TestPatientProfileFromRow(t *testing.T) {
	createdAt := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	row := patientProfileTableModel{
		UserID:              "u1",
		FullName:            sql.NullString{String: " Ayu Lestari ", Valid: true},
		DateOfBirth:         sql.NullString{String: "15/06/1990", Valid: true},
		NationalID:          sql.NullString{String: "123", Valid: true},
		Gender:              sql.NullString{String: "female", Valid: true},
		PersonalCreatedAt:   sql.NullTime{Time: createdAt, Valid: true},
		OnboardingCompleted: true,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}

	got := patientProfileFromRow(row)
	if got.Personal.FullName != "Ayu Lestari" {
		t.Fatalf("unexpected full name: %q", got.Personal.FullName)
	}
	if got.Personal.Gender != onboarding.GenderFemale {
		t.Fatalf("unexpected gender: %q", got.Personal.Gender)
	}
	if !got.Personal.CreatedAt.Equal(createdAt) || !got.Personal.UpdatedAt.IsZero() {
		t.Fatalf("unexpected personal timestamps: %+v", got.Personal)
	}
	if got.Personal.Address != "" {
		t.Fatalf("null address must map to empty, got %q", got.Personal.Address)
	}
	if !got.OnboardingCompleted {
		t.Fatalf("expected onboarding completed")
	}
}

func TestOptionalHelpers(t *testing.T) {
	if optionalString("  ") != nil {
		t.Fatalf("blank string must be nil")
	}
	if v := optionalString(" x "); v == nil || *v != "x" {
		t.Fatalf("unexpected optional string: %v", v)
	}
	if optionalTime(time.Time{}) != nil {
		t.Fatalf("zero time must be nil")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get: %w", sql.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows must be not found")
	}
	if isNotFound(fmt.Errorf("boom")) {
		t.Fatalf("unexpected not found")
	}
}

func TestPatientProfileUpsertQuery(t *testing.T) {
	query, args, err := qb.UpsertModel(patientProfilesTable, patientProfileInsertModel{UserID: "u1"}, patientProfileUpsert)
	if err != nil {
		t.Fatalf("build upsert: %v", err)
	}
	if len(args) != 13 || args[0] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
	for _, want := range []string{
		"ON CONFLICT (user_id) WHERE deleted_at IS NULL DO UPDATE SET",
		"personal_created_at = COALESCE(patient_profiles.personal_created_at, EXCLUDED.personal_created_at)",
		"onboarding_completed = EXCLUDED.onboarding_completed",
	} {
		if !strings.Contains(query, want) {
			t.Fatalf("expected %q in query:\n%s", want, query)
		}
	}
	for _, banned := range []string{"user_id = EXCLUDED", " created_at = EXCLUDED"} {
		if strings.Contains(query, banned) {
			t.Fatalf("immutable column overwritten (%q):\n%s", banned, query)
		}
	}
}

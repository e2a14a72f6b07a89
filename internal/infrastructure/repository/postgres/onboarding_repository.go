package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	qb "github.com/riskibarqy/patient-onboarding/internal/platform/querybuilder"
)

// personal_created_at keeps the first save's timestamp
var patientProfileUpsert = qb.Upsert{
	Target:    "(user_id) WHERE deleted_at IS NULL",
	Immutable: []string{"user_id", "created_at"},
	Overrides: map[string]string{
		"personal_created_at": "COALESCE(patient_profiles.personal_created_at, EXCLUDED.personal_created_at)",
	},
	Extra: []string{"deleted_at = NULL"},
}

type OnboardingRepository struct {
	db *sqlx.DB
}

func NewOnboardingRepository(db *sqlx.DB) *OnboardingRepository {
	return &OnboardingRepository{db: db}
}

func (r *OnboardingRepository) GetByUserID(ctx context.Context, userID string) (onboarding.Profile, bool, error) {
	query, args, err := qb.Select("*").
		From(patientProfilesTable).
		Where(
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return onboarding.Profile{}, false, fmt.Errorf("build get patient profile query: %w", err)
	}

	var row patientProfileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return onboarding.Profile{}, false, nil
		}
		return onboarding.Profile{}, false, fmt.Errorf("get patient profile: %w", err)
	}

	return patientProfileFromRow(row), true, nil
}

func (r *OnboardingRepository) Upsert(ctx context.Context, profile onboarding.Profile) error {
	personal := profile.Personal.ProfileDraft.Normalize()
	insertModel := patientProfileInsertModel{
		UserID:              strings.TrimSpace(profile.UserID),
		FullName:            optionalString(personal.FullName),
		DateOfBirth:         optionalString(personal.DateOfBirth),
		NationalID:          optionalString(personal.NationalID),
		Gender:              optionalString(string(personal.Gender)),
		Address:             optionalString(personal.Address),
		ContactNumber:       optionalString(personal.ContactNumber),
		ProfilePictureRef:   optionalString(personal.ProfilePictureRef),
		PersonalCreatedAt:   optionalTime(profile.Personal.CreatedAt),
		PersonalUpdatedAt:   optionalTime(profile.Personal.UpdatedAt),
		OnboardingCompleted: profile.OnboardingCompleted,
		CreatedAt:           profile.CreatedAt.UTC(),
		UpdatedAt:           profile.UpdatedAt.UTC(),
	}

	query, args, err := qb.UpsertModel(patientProfilesTable, insertModel, patientProfileUpsert)
	if err != nil {
		return fmt.Errorf("build upsert patient profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert patient profile: %w", err)
	}

	return nil
}

func (r *OnboardingRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("user_id").
		From(patientProfilesTable).
		Where(qb.IsNull("deleted_at")).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list patient profile ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list patient profile ids: %w", err)
	}
	return ids, nil
}

func patientProfileFromRow(row patientProfileTableModel) onboarding.Profile {
	draft := onboarding.ProfileDraft{
		FullName:          strings.TrimSpace(row.FullName.String),
		DateOfBirth:       strings.TrimSpace(row.DateOfBirth.String),
		NationalID:        strings.TrimSpace(row.NationalID.String),
		Gender:            onboarding.Gender(strings.TrimSpace(row.Gender.String)),
		Address:           strings.TrimSpace(row.Address.String),
		ContactNumber:     strings.TrimSpace(row.ContactNumber.String),
		ProfilePictureRef: strings.TrimSpace(row.ProfilePictureRef.String),
	}

	out := onboarding.Profile{
		UserID:              row.UserID,
		Personal:            onboarding.PersonalInformation{ProfileDraft: draft},
		OnboardingCompleted: row.OnboardingCompleted,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if row.PersonalCreatedAt.Valid {
		out.Personal.CreatedAt = row.PersonalCreatedAt.Time
	}
	if row.PersonalUpdatedAt.Valid {
		out.Personal.UpdatedAt = row.PersonalUpdatedAt.Time
	}
	return out
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

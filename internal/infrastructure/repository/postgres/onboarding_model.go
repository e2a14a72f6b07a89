package postgres

import (
	"database/sql"
	"time"
)

const patientProfilesTable = "patient_profiles"

type patientProfileTableModel struct {
	ID                  int64          `db:"id"`
	UserID              string         `db:"user_id"`
	FullName            sql.NullString `db:"full_name"`
	DateOfBirth         sql.NullString `db:"date_of_birth"`
	NationalID          sql.NullString `db:"national_id"`
	Gender              sql.NullString `db:"gender"`
	Address             sql.NullString `db:"address"`
	ContactNumber       sql.NullString `db:"contact_number"`
	ProfilePictureRef   sql.NullString `db:"profile_picture_ref"`
	PersonalCreatedAt   sql.NullTime   `db:"personal_created_at"`
	PersonalUpdatedAt   sql.NullTime   `db:"personal_updated_at"`
	OnboardingCompleted bool           `db:"onboarding_completed"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	DeletedAt           *time.Time     `db:"deleted_at"`
}

type patientProfileInsertModel struct {
	UserID              string     `db:"user_id"`
	FullName            *string    `db:"full_name"`
	DateOfBirth         *string    `db:"date_of_birth"`
	NationalID          *string    `db:"national_id"`
	Gender              *string    `db:"gender"`
	Address             *string    `db:"address"`
	ContactNumber       *string    `db:"contact_number"`
	ProfilePictureRef   *string    `db:"profile_picture_ref"`
	PersonalCreatedAt   *time.Time `db:"personal_created_at"`
	PersonalUpdatedAt   *time.Time `db:"personal_updated_at"`
	OnboardingCompleted bool       `db:"onboarding_completed"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

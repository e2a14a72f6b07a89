package onboarding

import "context"

// Repository persists one patient profile per user.
type Repository interface {
	// GetByUserID reports false when the user has never saved a profile.
	GetByUserID(ctx context.Context, userID string) (Profile, bool, error)
	// Upsert replaces the stored profile for profile.UserID.
	Upsert(ctx context.Context, profile Profile) error
	// ListUserIDs feeds the resync job.
	ListUserIDs(ctx context.Context) ([]string, error)
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

const (
	guestFirstName = "Guest"
	guestLastName  = "User"
)

type SavePersonalInput struct {
	UserID string
	Draft  onboarding.ProfileDraft
}

type HomeSummary struct {
	UserID              string `json:"userId"`
	FullName            string `json:"fullName"`
	FirstName           string `json:"firstName"`
	LastName            string `json:"lastName"`
	Email               string `json:"email,omitempty"`
	ProfilePictureRef   string `json:"profilePictureRef,omitempty"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}

// ProfileService is the repository-backed profile store.
type ProfileService struct {
	profileRepo onboarding.Repository
	accounts    identity.Provider
	logger      *logging.Logger
	now         func() time.Time
}

func NewProfileService(profileRepo onboarding.Repository, accounts identity.Provider, logger *logging.Logger) *ProfileService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProfileService{
		profileRepo: profileRepo,
		accounts:    accounts,
		logger:      logger,
		now:         time.Now,
	}
}

// SavePersonal validates a draft and stores it as the user's personal information.
func (s *ProfileService) SavePersonal(ctx context.Context, input SavePersonalInput) (onboarding.Profile, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.SavePersonal")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return onboarding.Profile{}, fmt.Errorf("%w: %w", ErrInvalidInput, onboarding.ErrMissingUserContext)
	}
	if err := onboarding.ValidateDraft(input.Draft); err != nil {
		return onboarding.Profile{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	if err := onboarding.CheckDateOfBirth(input.Draft.DateOfBirth, now); err != nil {
		return onboarding.Profile{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return s.mergeProfile(ctx, profileWriteInput{
		UserID:   input.UserID,
		Personal: ptr(onboarding.Snapshot(input.Draft, now)),
	})
}

// Save implements ProfileStore for in-process callers.
func (s *ProfileService) Save(ctx context.Context, userID string, info onboarding.PersonalInformation) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.Save", attribute.String("user_id", userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return crerr.WithStack(onboarding.ErrMissingUserContext)
	}
	if err := onboarding.ValidateDraft(info.ProfileDraft); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	info.ProfileDraft = info.ProfileDraft.Normalize()

	_, err := s.mergeProfile(ctx, profileWriteInput{UserID: userID, Personal: &info})
	return err
}

func (s *ProfileService) Load(ctx context.Context, userID string) (onboarding.Profile, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.Load", attribute.String("user_id", userID))
	defer span.End()

	profile, exists, err := s.profileRepo.GetByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return onboarding.Profile{}, false, fmt.Errorf("%w: get onboarding profile: %w", ErrDependencyUnavailable, err)
	}
	return profile, exists, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (onboarding.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return onboarding.Profile{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	profile, exists, err := s.Load(ctx, userID)
	if err != nil {
		return onboarding.Profile{}, err
	}
	if !exists {
		return onboarding.Profile{}, fmt.Errorf("%w: profile not found for user %s", ErrNotFound, userID)
	}
	return profile, nil
}

func (s *ProfileService) MarkCompleted(ctx context.Context, userID string) error {
	_, err := s.CompleteOnboarding(ctx, userID)
	return err
}

// CompleteOnboarding flags the profile as done; personal information must exist first.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID string) (onboarding.Profile, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.CompleteOnboarding", attribute.String("user_id", userID))
	defer span.End()

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return onboarding.Profile{}, err
	}
	if !profile.HasPersonal() {
		return onboarding.Profile{}, fmt.Errorf("%w: personal information must be saved first", ErrInvalidInput)
	}
	if profile.OnboardingCompleted {
		return profile, nil
	}

	return s.mergeProfile(ctx, profileWriteInput{
		UserID:              profile.UserID,
		OnboardingCompleted: true,
	})
}

// Home builds the dashboard greeting. A missing or unreadable profile falls
// back to a guest name instead of failing.
func (s *ProfileService) Home(ctx context.Context, userID string) (HomeSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.Home", attribute.String("user_id", userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return HomeSummary{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	var (
		profile    onboarding.Profile
		exists     bool
		profileErr error
		account    identity.Account
		accountErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		profile, exists, profileErr = s.profileRepo.GetByUserID(ctx, userID)
	})
	if s.accounts != nil {
		wg.Go(func() {
			account, _, accountErr = s.accounts.GetUserByID(ctx, userID)
		})
	}
	wg.Wait()

	if accountErr != nil {
		s.logger.WarnContext(ctx, "load account for home failed", "user_id", userID, "error", accountErr)
	}

	summary := HomeSummary{
		UserID: userID,
		Email:  account.Email,
	}
	switch {
	case profileErr != nil:
		s.logger.WarnContext(ctx, "load profile for home failed", "user_id", userID, "error", profileErr)
		fallthrough
	case !exists:
		summary.FullName = guestFirstName + " " + guestLastName
		summary.FirstName = guestFirstName
		summary.LastName = guestLastName
		return summary, nil
	}

	fullName := strings.TrimSpace(profile.Personal.FullName)
	if fullName == "" {
		fullName = guestFirstName
	}
	summary.FullName = fullName
	summary.FirstName, summary.LastName = splitName(fullName)
	summary.ProfilePictureRef = profile.Personal.ProfilePictureRef
	summary.OnboardingCompleted = profile.OnboardingCompleted
	return summary, nil
}

func splitName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

type profileWriteInput struct {
	UserID              string
	Personal            *onboarding.PersonalInformation
	OnboardingCompleted bool
}

func (s *ProfileService) mergeProfile(ctx context.Context, input profileWriteInput) (onboarding.Profile, error) {
	existing, exists, err := s.profileRepo.GetByUserID(ctx, input.UserID)
	if err != nil {
		return onboarding.Profile{}, fmt.Errorf("%w: get onboarding profile: %w", ErrDependencyUnavailable, err)
	}

	now := s.now().UTC()
	out := existing
	out.UserID = input.UserID

	if input.Personal != nil {
		personal := *input.Personal
		if exists && !existing.Personal.CreatedAt.IsZero() {
			personal.CreatedAt = existing.Personal.CreatedAt
		}
		if personal.CreatedAt.IsZero() {
			personal.CreatedAt = now
		}
		if personal.UpdatedAt.IsZero() {
			personal.UpdatedAt = now
		}
		out.Personal = personal
	}
	if input.OnboardingCompleted {
		out.OnboardingCompleted = true
	}

	if !exists || out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now

	if err := s.profileRepo.Upsert(ctx, out); err != nil {
		return onboarding.Profile{}, fmt.Errorf("%w: upsert onboarding profile: %w", ErrDependencyUnavailable, err)
	}

	return out, nil
}

func ptr[T any](v T) *T {
	return &v
}

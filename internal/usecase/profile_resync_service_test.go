package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/infrastructure/repository/memory"
	onboardingmock "github.com/riskibarqy/patient-onboarding/internal/mocks/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func TestProfileResyncService_CopiesAllProfiles(t *testing.T) {
	source := memory.NewOnboardingRepository(
		onboarding.Profile{UserID: "u1"},
		onboarding.Profile{UserID: "u2", OnboardingCompleted: true},
		onboarding.Profile{UserID: "u3"},
	)
	target := memory.NewOnboardingRepository()
	service := NewProfileResyncService(source, target, 2, logging.NewNop())

	result, err := service.Resync(t.Context(), ProfileResyncInput{})
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if result.ProfileCount != 3 || result.SuccessCount != 3 || result.WorkerCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Items[0].UserID != "u1" || result.Items[2].UserID != "u3" {
		t.Fatalf("items must be sorted: %+v", result.Items)
	}

	got, ok, _ := target.GetByUserID(t.Context(), "u2")
	if !ok || !got.OnboardingCompleted {
		t.Fatalf("profile not copied: %+v ok=%v", got, ok)
	}
}

func TestProfileResyncService_ReportsFailuresAndSkips(t *testing.T) {
	source := memory.NewOnboardingRepository(onboarding.Profile{UserID: "u1"}, onboarding.Profile{UserID: "u2"})
	target := onboardingmock.NewRepository(t)
	target.On("Upsert", mock.Anything, mock.MatchedBy(func(p onboarding.Profile) bool { return p.UserID == "u1" })).Return(nil).Once()
	target.On("Upsert", mock.Anything, mock.MatchedBy(func(p onboarding.Profile) bool { return p.UserID == "u2" })).Return(errors.New("write conflict")).Once()

	service := NewProfileResyncService(source, target, 4, logging.NewNop())
	result, err := service.Resync(t.Context(), ProfileResyncInput{UserIDs: []string{"u1", "u2", "missing"}})
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 1 || result.SkippedCount != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestProfileResyncService_DryRunWritesNothing(t *testing.T) {
	source := memory.NewOnboardingRepository(onboarding.Profile{UserID: "u1"})
	target := onboardingmock.NewRepository(t)
	service := NewProfileResyncService(source, target, 1, logging.NewNop())

	result, err := service.Resync(t.Context(), ProfileResyncInput{DryRun: true})
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if result.SkippedCount != 1 {
		t.Fatalf("expected dry run skip, got %+v", result)
	}
}

func TestProfileResyncService_RequiresTarget(t *testing.T) {
	service := NewProfileResyncService(memory.NewOnboardingRepository(), nil, 1, logging.NewNop())
	if _, err := service.Resync(t.Context(), ProfileResyncInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

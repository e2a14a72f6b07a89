package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
)

func sampleProfile(userID string, at time.Time) onboarding.Profile {
	return onboarding.Profile{
		UserID: userID,
		Personal: onboarding.Snapshot(onboarding.ProfileDraft{
			FullName:    "Ana Maria Lopez",
			DateOfBirth: "14/02/1990",
			NationalID:  "3174000000000001",
			Gender:      onboarding.GenderFemale,
			Address:     "Jl. Melati 4",
		}, at),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestDocumentMappingRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	profile := sampleProfile("user-1", at)

	doc := documentFromProfile(profile)
	if doc.Personal == nil || doc.Personal.Gender != "female" {
		t.Fatalf("unexpected personal document: %+v", doc.Personal)
	}

	got := profileFromDocument(doc)
	if got.UserID != "user-1" || got.Personal.FullName != "Ana Maria Lopez" || got.Personal.Gender != onboarding.GenderFemale {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if !got.Personal.CreatedAt.Equal(at) {
		t.Fatalf("personal created_at lost: %v", got.Personal.CreatedAt)
	}
}

func TestDocumentOmitsEmptyPersonal(t *testing.T) {
	t.Parallel()

	doc := documentFromProfile(onboarding.Profile{UserID: "user-2", OnboardingCompleted: false})
	if doc.Personal != nil {
		t.Fatalf("expected no personal subdocument, got %+v", doc.Personal)
	}
	if got := profileFromDocument(doc); got.HasPersonal() {
		t.Fatalf("expected profile without personal info")
	}
}

func TestOnboardingRepositoryIntegration(t *testing.T) {
	m := mustConnect(t)
	repo := NewOnboardingRepository(m)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	if _, exists, err := repo.GetByUserID(ctx, "missing"); err != nil || exists {
		t.Fatalf("expected missing profile, exists=%v err=%v", exists, err)
	}

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	if err := repo.Upsert(ctx, sampleProfile("user-b", at)); err != nil {
		t.Fatalf("upsert user-b: %v", err)
	}
	completed := sampleProfile("user-a", at)
	completed.OnboardingCompleted = true
	if err := repo.Upsert(ctx, completed); err != nil {
		t.Fatalf("upsert user-a: %v", err)
	}

	got, exists, err := repo.GetByUserID(ctx, "user-a")
	if err != nil || !exists {
		t.Fatalf("get user-a: exists=%v err=%v", exists, err)
	}
	if !got.OnboardingCompleted || got.Personal.NationalID != "3174000000000001" {
		t.Fatalf("unexpected stored profile: %+v", got)
	}

	completed.Personal.FullName = "Ana Lopez"
	if err := repo.Upsert(ctx, completed); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _, _ = repo.GetByUserID(ctx, "user-a")
	if got.Personal.FullName != "Ana Lopez" {
		t.Fatalf("upsert did not replace document: %+v", got.Personal)
	}

	ids, err := repo.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "user-a" || ids[1] != "user-b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

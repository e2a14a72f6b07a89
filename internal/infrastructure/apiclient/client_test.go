package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	identitymemory "github.com/riskibarqy/patient-onboarding/internal/infrastructure/identity/memory"
	"github.com/riskibarqy/patient-onboarding/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/patient-onboarding/internal/interfaces/httpapi"
	"github.com/riskibarqy/patient-onboarding/internal/platform/id"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
)

func newTestAPI(t *testing.T) *Client {
	t.Helper()

	logger := logging.NewNop()
	provider := identitymemory.NewProvider(id.NewUUIDGenerator())
	profiles := memory.NewOnboardingRepository()
	handler := httpapi.NewHandler(
		usecase.NewAuthService(provider, logger),
		usecase.NewProfileService(profiles, provider, logger),
		nil,
		logger,
	)
	server := httptest.NewServer(httpapi.NewRouter(handler, logger, nil, ""))
	t.Cleanup(server.Close)

	return NewClient(Config{BaseURL: server.URL + "/", Timeout: 5 * time.Second}, logger)
}

func personalInfo() onboarding.PersonalInformation {
	return onboarding.Snapshot(onboarding.ProfileDraft{
		FullName:    "Ana Maria Lopez",
		DateOfBirth: "14/02/1990",
		NationalID:  "3174000000000001",
		Gender:      onboarding.GenderFemale,
	}, time.Now())
}

func TestCreateAccountAndLookup(t *testing.T) {
	client := newTestAPI(t)
	ctx := context.Background()

	uid, err := client.CreateAccount(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	got, err := client.Lookup(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != uid {
		t.Fatalf("lookup uid = %q, want %q", got, uid)
	}

	_, err = client.CreateAccount(ctx, "ana@example.com", "secret1")
	if !errors.Is(err, usecase.ErrConflict) || err.Error() != "conflict: Email already exists" {
		t.Fatalf("expected duplicate signup to be a conflict, got %v", err)
	}
}

func TestLookupUnknownEmailIsNotFound(t *testing.T) {
	client := newTestAPI(t)

	_, err := client.Lookup(context.Background(), "ghost@example.com")
	if !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupProviderFailureIsNotNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"failed","message":"Authentication failed"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second}, logging.NewNop())
	_, err := client.Lookup(context.Background(), "ana@example.com")
	if errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("provider failure must not read as an unknown email: %v", err)
	}
	if !errors.Is(err, usecase.ErrUnauthorized) || err.Error() != "unauthorized: Authentication failed" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProfileStoreRoundTrip(t *testing.T) {
	client := newTestAPI(t)
	ctx := context.Background()

	uid, err := client.CreateAccount(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, exists, err := client.Load(ctx, uid); err != nil || exists {
		t.Fatalf("expected no profile yet, exists=%v err=%v", exists, err)
	}
	if err := client.Save(ctx, uid, personalInfo()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := client.MarkCompleted(ctx, uid); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	profile, exists, err := client.Load(ctx, uid)
	if err != nil || !exists {
		t.Fatalf("load: exists=%v err=%v", exists, err)
	}
	if profile.Personal.FullName != "Ana Maria Lopez" || profile.Personal.Gender != onboarding.GenderFemale {
		t.Fatalf("unexpected personal info: %+v", profile.Personal)
	}
	if !profile.OnboardingCompleted || profile.Personal.CreatedAt.IsZero() {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	home, err := client.Home(ctx, uid)
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if home.FirstName != "Ana" || home.LastName != "Lopez" || home.Email != "ana@example.com" {
		t.Fatalf("unexpected home: %+v", home)
	}
}

func TestSaveRejectedByServerKeepsMessage(t *testing.T) {
	client := newTestAPI(t)

	info := personalInfo()
	info.FullName = ""
	err := client.Save(context.Background(), "user-1", info)
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err.Error() != "invalid input: Missing required field: fullName" {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestUnreachableServerIsDependencyUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: baseURL, Timeout: time.Second}, logging.NewNop())
	_, err := client.Lookup(context.Background(), "ana@example.com")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestStepControllerOverHTTP(t *testing.T) {
	client := newTestAPI(t)
	ctx := context.Background()

	controller := usecase.NewStepController(client, client, logging.NewNop())
	if err := controller.CreateAccount(ctx, "ana@example.com", "secret1", "secret1"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := controller.UpdateDraft(func(d onboarding.ProfileDraft) onboarding.ProfileDraft {
		return d.WithFullName("Ana Lopez").
			WithDateOfBirth("14/02/1990").
			WithNationalID("3174").
			WithGender(onboarding.GenderFemale)
	}); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if err := controller.SubmitPersonal(ctx); err != nil {
		t.Fatalf("submit personal: %v", err)
	}
	if got := controller.State().Current; got != onboarding.StepHealth {
		t.Fatalf("expected health step, got %s", got)
	}
	if err := controller.CompleteHealth(ctx); err != nil {
		t.Fatalf("complete health: %v", err)
	}
	if !controller.State().Completed {
		t.Fatalf("expected completed state")
	}
}

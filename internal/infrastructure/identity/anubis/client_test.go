package anubis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/platform/resilience"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	if cfg.AdminKey == "" {
		cfg.AdminKey = "admin-secret"
	}
	return NewClient(server.Client(), cfg, logging.NewNop())
}

func TestCreateUserSendsAdminKeyAndDecodesUser(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/admin/users" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("x-admin-key"); got != "admin-secret" {
			t.Fatalf("unexpected admin key: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"email":"ana@example.com"`) {
			t.Fatalf("email was not normalized in body: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user":{"id":"user-1","email":"ana@example.com","email_verified":false,"disabled":false,"created_at":"2026-03-10T10:00:00Z"}}`))
	}, Config{})

	account, err := client.CreateUser(context.Background(), identity.CreateUserInput{
		Email:    " Ana@Example.com ",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if account.UserID != "user-1" || account.Email != "ana@example.com" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestCreateUserConflictMapsToEmailAlreadyExists(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"email taken"}`))
	}, Config{})

	_, err := client.CreateUser(context.Background(), identity.CreateUserInput{Email: "ana@example.com", Password: "secret1"})
	if !errors.Is(err, identity.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestCreateUserRejectedKeepsProviderMessage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"password too weak"}`))
	}, Config{})

	_, err := client.CreateUser(context.Background(), identity.CreateUserInput{Email: "ana@example.com", Password: "secret1"})
	if err == nil || err.Error() != "password too weak" {
		t.Fatalf("expected the provider message as is, got %v", err)
	}
	if errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("rejection must not be reported as unavailable: %v", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "ghost@example.com" {
			t.Fatalf("unexpected email query: %q", got)
		}
		w.WriteHeader(http.StatusNotFound)
	}, Config{})

	_, exists, err := client.GetUserByEmail(context.Background(), "Ghost@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if exists {
		t.Fatalf("expected missing account")
	}
}

func TestLookupUsesAccountCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"user":{"id":"user-7","email":"bo@example.com"}}`))
	}, Config{AccountCacheTTL: time.Minute})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		account, exists, err := client.GetUserByEmail(ctx, "bo@example.com")
		if err != nil || !exists || account.UserID != "user-7" {
			t.Fatalf("lookup %d: account=%+v exists=%v err=%v", i, account, exists, err)
		}
	}
	if _, exists, err := client.GetUserByID(ctx, "user-7"); err != nil || !exists {
		t.Fatalf("id lookup: exists=%v err=%v", exists, err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestServerErrorsOpenCircuit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, Config{CircuitBreaker: resilience.BreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	}})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := client.GetUserByID(ctx, "user-1")
		if !errors.Is(err, usecase.ErrDependencyUnavailable) {
			t.Fatalf("attempt %d: expected ErrDependencyUnavailable, got %v", i, err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected circuit to stop the third call, upstream calls=%d", got)
	}
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	cases := map[string][2]string{
		"http://anubis/v1/admin/users": {"http://anubis/", "/v1/admin/users"},
		"http://anubis/v1/x":           {" http://anubis ", "v1/x"},
		"https://other/path":           {"http://anubis", "https://other/path"},
	}
	for want, in := range cases {
		if got := buildURL(in[0], in[1]); got != want {
			t.Fatalf("buildURL(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/config"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:               config.EnvDev,
		ServiceName:          "patient-onboarding-api",
		HTTPAddr:             ":0",
		ProfileStore:         config.StoreMemory,
		ProfileResyncWorkers: 2,
		IdentityProvider:     config.IdentityMemory,
		CacheEnabled:         true,
		CacheTTL:             time.Minute,
		CORSAllowedOrigins:   []string{"*"},
	}
}

func TestNewHTTPServerMemoryStack(t *testing.T) {
	srv, cleanup, err := NewHTTPServer(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	t.Cleanup(func() { _ = cleanup(context.Background()) })

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"ana@example.com","password":"secret1"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("signup through wired server: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNewHTTPServerRejectsEmptyAddr(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTPAddr = ""
	if _, _, err := NewHTTPServer(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNewHTTPServerWithMemoryResyncTarget(t *testing.T) {
	cfg := memoryConfig()
	cfg.ProfileStore = config.StoreMemory
	cfg.ProfileResyncTarget = config.StoreMemory
	cfg.InternalJobToken = "job"

	srv, cleanup, err := NewHTTPServer(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	t.Cleanup(func() { _ = cleanup(context.Background()) })

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/profile-resync", nil)
	req.Header.Set("X-Internal-Job-Token", "job")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resync through wired server: %d %s", rec.Code, rec.Body.String())
	}
}

package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testTimeout = 10 * time.Second

// TestMain starts one MongoDB container for the package when
// GO_TEST_INTEGRATION is set. Unit tests run without it.
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}
	_ = os.Setenv("MONGO_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()
	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// mustConnect opens a fresh database per test and drops it on cleanup.
func mustConnect(t *testing.T) *Mongo {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("set GO_TEST_INTEGRATION=1 to run mongo integration tests")
	}

	baseURL := strings.TrimSuffix(os.Getenv("MONGO_URL"), "/")
	if baseURL == "" {
		baseURL = "mongodb://localhost:27017"
	}
	dbName := "onboarding_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := Connect(ctx, baseURL+"/"+dbName, "")
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})
	return m
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"mongodb://localhost:27017/patients":     "patients",
		"mongodb://localhost:27017/patients?w=1": "patients",
		"mongodb://localhost:27017":              defaultDBName,
		"mongodb://localhost:27017/":             defaultDBName,
		"::not a uri":                            defaultDBName,
	}
	for uri, want := range cases {
		if got := databaseFromURI(uri); got != want {
			t.Fatalf("databaseFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := Connect(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

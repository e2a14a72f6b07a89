package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/patient-onboarding/internal/config"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/infrastructure/identity/anubis"
	identitymemory "github.com/riskibarqy/patient-onboarding/internal/infrastructure/identity/memory"
	cacherepo "github.com/riskibarqy/patient-onboarding/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/patient-onboarding/internal/infrastructure/repository/memory"
	mongorepo "github.com/riskibarqy/patient-onboarding/internal/infrastructure/repository/mongo"
	"github.com/riskibarqy/patient-onboarding/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/patient-onboarding/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/patient-onboarding/internal/platform/cache"
	idgen "github.com/riskibarqy/patient-onboarding/internal/platform/id"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/platform/resilience"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	profileCacheMaxEntries = 10000
	storeConnectTimeout    = 10 * time.Second
)

type closer func(context.Context) error

// NewHTTPServer builds the API server and returns a cleanup that releases
// store connections.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	var closers []closer
	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		return errors.Join(errs...)
	}

	primary, closePrimary, err := openProfileStore(ctx, cfg.ProfileStore, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open profile store %s: %w", cfg.ProfileStore, err)
	}
	closers = append(closers, closePrimary)

	profileRepo := primary
	if cfg.CacheEnabled {
		profileRepo = cacherepo.NewOnboardingRepository(primary, basecache.NewStore(
			cfg.CacheTTL,
			basecache.WithMaxEntries(profileCacheMaxEntries),
		))
	}

	var resyncSvc *usecase.ProfileResyncService
	if cfg.ProfileResyncTarget != "" {
		target, closeTarget, err := openProfileStore(ctx, cfg.ProfileResyncTarget, cfg, logger)
		if err != nil {
			_ = cleanup(ctx)
			return nil, nil, fmt.Errorf("open resync target %s: %w", cfg.ProfileResyncTarget, err)
		}
		closers = append(closers, closeTarget)
		resyncSvc = usecase.NewProfileResyncService(primary, target, cfg.ProfileResyncWorkers, logger)
	}

	accounts := newIdentityProvider(cfg, logger)

	handler := httpapi.NewHandler(
		usecase.NewAuthService(accounts, logger),
		usecase.NewProfileService(profileRepo, accounts, logger),
		resyncSvc,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	logger.Info("application wired",
		"profile_store", cfg.ProfileStore,
		"resync_target", cfg.ProfileResyncTarget,
		"identity_provider", cfg.IdentityProvider,
		"cache_enabled", cfg.CacheEnabled,
	)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, cleanup, nil
}

func openProfileStore(ctx context.Context, kind string, cfg config.Config, logger *logging.Logger) (onboarding.Repository, closer, error) {
	noop := func(context.Context) error { return nil }

	switch kind {
	case config.StoreMemory:
		return memory.NewOnboardingRepository(), noop, nil
	case config.StorePostgres:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("postgres profile store connected", "db_name", dbNameFromURL(cfg.DBURL))
		return postgres.NewOnboardingRepository(db), func(context.Context) error { return db.Close() }, nil
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
		defer cancel()
		m, err := mongorepo.Connect(connectCtx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("mongo profile store connected")
		return mongorepo.NewOnboardingRepository(m), m.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown profile store %q", kind)
	}
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dbURL := NormalizeDBURL(cfg.DBURL, cfg.ServiceName)
	db, err := otelsqlx.Open("postgres", dbURL,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func newIdentityProvider(cfg config.Config, logger *logging.Logger) identity.Provider {
	if cfg.IdentityProvider != config.IdentityAnubis {
		return identitymemory.NewProvider(idgen.NewUUIDGenerator())
	}

	return anubis.NewClient(
		&http.Client{
			Timeout:   cfg.AnubisTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		anubis.Config{
			BaseURL:         cfg.AnubisBaseURL,
			AdminKey:        cfg.AnubisAdminKey,
			Timeout:         cfg.AnubisTimeout,
			AccountCacheTTL: cfg.AnubisAccountCacheTTL,
			AccountCacheMax: profileCacheMaxEntries,
			CircuitBreaker: resilience.BreakerConfig{
				Enabled:          cfg.AnubisCircuitEnabled,
				FailureThreshold: cfg.AnubisCircuitFailureCount,
				OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
			},
		},
		logger,
	)
}

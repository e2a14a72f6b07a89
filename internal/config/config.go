package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	IdentityMemory = "memory"
	IdentityAnubis = "anubis"
)

// Config stores runtime configuration for the API service.
type Config struct {
	AppEnv                      string
	ServiceName                 string
	ServiceVersion              string
	HTTPAddr                    string
	ReadTimeout                 time.Duration
	WriteTimeout                time.Duration
	LogLevel                    logging.Level
	ProfileStore                string
	DBURL                       string
	DBMaxOpenConns              int
	DBMaxIdleConns              int
	MongoURL                    string
	MongoDatabase               string
	IdentityProvider            string
	AnubisBaseURL               string
	AnubisAdminKey              string
	AnubisTimeout               time.Duration
	AnubisAccountCacheTTL       time.Duration
	AnubisCircuitEnabled        bool
	AnubisCircuitFailureCount   int
	AnubisCircuitOpenTimeout    time.Duration
	AnubisCircuitHalfOpenMaxReq int
	CacheEnabled                bool
	CacheTTL                    time.Duration
	InternalJobToken            string
	ProfileResyncTarget         string
	ProfileResyncWorkers        int
	CORSAllowedOrigins          []string
	UptraceEnabled              bool
	UptraceDSN                  string
	PyroscopeEnabled            bool
	PyroscopeServerAddress      string
	PyroscopeAppName            string
	PyroscopeAuthToken          string
	PyroscopeBasicAuthUser      string
	PyroscopeBasicAuthPassword  string
	PyroscopeUploadRate         time.Duration
	PprofEnabled                bool
	PprofAddr                   string
}

// ClientConfig configures the terminal onboarding client.
type ClientConfig struct {
	APIURL   string
	Timeout  time.Duration
	LogLevel logging.Level
	LogFile  string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	profileStore, err := parseStore("PROFILE_STORE", getEnv("PROFILE_STORE", StoreMemory), false)
	if err != nil {
		return Config{}, err
	}
	resyncTarget, err := parseStore("PROFILE_RESYNC_TARGET", getEnv("PROFILE_RESYNC_TARGET", ""), true)
	if err != nil {
		return Config{}, err
	}
	if resyncTarget != "" && resyncTarget == profileStore {
		return Config{}, fmt.Errorf("PROFILE_RESYNC_TARGET must differ from PROFILE_STORE (%s)", profileStore)
	}
	resyncWorkers, err := getEnvAsInt("PROFILE_RESYNC_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROFILE_RESYNC_WORKERS: %w", err)
	}
	if resyncWorkers <= 0 {
		return Config{}, fmt.Errorf("PROFILE_RESYNC_WORKERS must be > 0")
	}

	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if usesStore(StorePostgres, profileStore, resyncTarget) && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when the postgres profile store is used")
	}
	dbMaxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	dbMaxIdleConns, err := getEnvAsInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_IDLE_CONNS: %w", err)
	}

	mongoURL := strings.TrimSpace(getEnv("MONGO_URL", ""))
	if usesStore(StoreMongo, profileStore, resyncTarget) && mongoURL == "" {
		return Config{}, fmt.Errorf("MONGO_URL is required when the mongo profile store is used")
	}

	identityProvider := strings.ToLower(strings.TrimSpace(getEnv("IDENTITY_PROVIDER", IdentityMemory)))
	switch identityProvider {
	case IdentityMemory, IdentityAnubis:
	default:
		return Config{}, fmt.Errorf("invalid IDENTITY_PROVIDER %q: valid values are %s, %s", identityProvider, IdentityMemory, IdentityAnubis)
	}
	anubisBaseURL := strings.TrimSpace(getEnv("ANUBIS_BASE_URL", ""))
	if identityProvider == IdentityAnubis && anubisBaseURL == "" {
		return Config{}, fmt.Errorf("ANUBIS_BASE_URL is required when IDENTITY_PROVIDER=anubis")
	}
	anubisTimeout, err := time.ParseDuration(getEnv("ANUBIS_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANUBIS_TIMEOUT: %w", err)
	}
	anubisAccountCacheTTL, err := time.ParseDuration(getEnv("ANUBIS_ACCOUNT_CACHE_TTL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANUBIS_ACCOUNT_CACHE_TTL: %w", err)
	}
	anubisCircuitEnabled, err := strconv.ParseBool(getEnv("ANUBIS_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANUBIS_CIRCUIT_ENABLED: %w", err)
	}
	anubisCircuitFailureCount, err := getEnvAsInt("ANUBIS_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse ANUBIS_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	anubisCircuitOpenTimeout, err := time.ParseDuration(getEnv("ANUBIS_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANUBIS_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	anubisCircuitHalfOpenMaxReq, err := getEnvAsInt("ANUBIS_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse ANUBIS_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	serviceName := getEnv("SERVICE_NAME", "patient-onboarding-api")

	return Config{
		AppEnv:                      appEnv,
		ServiceName:                 serviceName,
		ServiceVersion:              getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                 readTimeout,
		WriteTimeout:                writeTimeout,
		LogLevel:                    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		ProfileStore:                profileStore,
		DBURL:                       dbURL,
		DBMaxOpenConns:              dbMaxOpenConns,
		DBMaxIdleConns:              dbMaxIdleConns,
		MongoURL:                    mongoURL,
		MongoDatabase:               strings.TrimSpace(getEnv("MONGO_DATABASE", "")),
		IdentityProvider:            identityProvider,
		AnubisBaseURL:               anubisBaseURL,
		AnubisAdminKey:              getEnv("ANUBIS_ADMIN_KEY", ""),
		AnubisTimeout:               anubisTimeout,
		AnubisAccountCacheTTL:       anubisAccountCacheTTL,
		AnubisCircuitEnabled:        anubisCircuitEnabled,
		AnubisCircuitFailureCount:   anubisCircuitFailureCount,
		AnubisCircuitOpenTimeout:    anubisCircuitOpenTimeout,
		AnubisCircuitHalfOpenMaxReq: anubisCircuitHalfOpenMaxReq,
		CacheEnabled:                cacheEnabled,
		CacheTTL:                    cacheTTL,
		InternalJobToken:            strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		ProfileResyncTarget:         resyncTarget,
		ProfileResyncWorkers:        resyncWorkers,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAppName:            getEnv("PYROSCOPE_APP_NAME", serviceName),
		PyroscopeAuthToken:          getEnv("PYROSCOPE_AUTH_TOKEN", ""),
		PyroscopeBasicAuthUser:      getEnv("PYROSCOPE_BASIC_AUTH_USER", ""),
		PyroscopeBasicAuthPassword:  getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""),
		PyroscopeUploadRate:         pyroscopeUploadRate,
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
	}, nil
}

func LoadClient() (ClientConfig, error) {
	timeout, err := time.ParseDuration(getEnv("ONBOARD_TIMEOUT", "10s"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("parse ONBOARD_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return ClientConfig{}, fmt.Errorf("ONBOARD_TIMEOUT must be > 0")
	}

	apiURL := strings.TrimSuffix(strings.TrimSpace(getEnv("ONBOARD_API_URL", "http://localhost:8080")), "/")
	if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
		return ClientConfig{}, fmt.Errorf("ONBOARD_API_URL must start with http:// or https://, got %q", apiURL)
	}

	return ClientConfig{
		APIURL:   apiURL,
		Timeout:  timeout,
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "warn")),
		LogFile:  strings.TrimSpace(getEnv("ONBOARD_LOG_FILE", "onboard.log")),
	}, nil
}

func parseStore(key, v string, allowEmpty bool) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case StoreMemory, StorePostgres, StoreMongo:
		return value, nil
	case "":
		if allowEmpty {
			return "", nil
		}
	}
	return "", fmt.Errorf("invalid %s %q: valid values are %s, %s, %s", key, v, StoreMemory, StorePostgres, StoreMongo)
}

func usesStore(kind string, stores ...string) bool {
	for _, s := range stores {
		if s == kind {
			return true
		}
	}
	return false
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

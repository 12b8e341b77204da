package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

const MaxHistoryWorkers = 32

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                      string
	ServiceName                 string
	ServiceVersion              string
	HTTPAddr                    string
	ReadTimeout                 time.Duration
	WriteTimeout                time.Duration
	CORSAllowedOrigins          []string
	SwaggerEnabled              bool
	DataSource                  string
	ManifestPath                string
	SourceTimeout               time.Duration
	SourceMaxRetries            int
	SourceMaxBodyBytes          int64
	SourceCircuitEnabled        bool
	SourceCircuitFailureCount   int
	SourceCircuitOpenTimeout    time.Duration
	SourceCircuitHalfOpenMaxReq int
	HistoryMaxWorkers           int
	CacheEnabled                bool
	CacheTTL                    time.Duration
	StoreDriver                 string
	DBURL                       string
	DBDisablePreparedBinary     bool
	DefaultLanguage             string
	PprofEnabled                bool
	PprofAddr                   string
	UptraceEnabled              bool
	UptraceDSN                  string
	BetterStackEnabled          bool
	BetterStackEndpoint         string
	BetterStackToken            string
	BetterStackTimeout          time.Duration
	BetterStackMinLevel         logging.Level
	PyroscopeEnabled            bool
	PyroscopeServerAddress      string
	PyroscopeAppName            string
	PyroscopeAuthToken          string
	PyroscopeBasicAuthUser      string
	PyroscopeBasicAuthPassword  string
	PyroscopeUploadRate         time.Duration
	LogLevel                    logging.Level
}

// RemoteSource reports whether DataSource points at an http(s) origin instead of a
// local directory.
func (c Config) RemoteSource() bool {
	return IsRemoteSource(c.DataSource)
}

func IsRemoteSource(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const maxInt = int(^uint(0) >> 1)

// Load reads the environment. Every invalid or missing value is reported in one
// joined error.
func Load() (Config, error) {
	return load(newEnvReader())
}

func load(r *envReader) (Config, error) {
	var cfg Config

	cfg.AppEnv = r.oneOf("APP_ENV", EnvDev, EnvDev, EnvStage, EnvProd)
	cfg.ServiceName = r.str("APP_SERVICE_NAME", "chefscore-api")
	cfg.ServiceVersion = r.str("APP_SERVICE_VERSION", "dev")
	cfg.LogLevel = logging.ParseLevel(r.str("APP_LOG_LEVEL", "info"))

	cfg.HTTPAddr = r.str("APP_HTTP_ADDR", ":8080")
	cfg.ReadTimeout = r.duration("APP_READ_TIMEOUT", 10*time.Second)
	cfg.WriteTimeout = r.duration("APP_WRITE_TIMEOUT", 30*time.Second)
	cfg.CORSAllowedOrigins = r.list("CORS_ALLOWED_ORIGINS", "*")
	if len(cfg.CORSAllowedOrigins) == 0 {
		r.fail("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	cfg.SwaggerEnabled = r.boolean("SWAGGER_ENABLED", cfg.AppEnv != EnvProd)

	cfg.DataSource = r.str("DATA_SOURCE", "./data")
	cfg.ManifestPath = r.str("DATA_MANIFEST_PATH", "weeks.json")
	cfg.SourceTimeout = r.duration("SOURCE_TIMEOUT", 10*time.Second)
	cfg.SourceMaxRetries = r.intBetween("SOURCE_MAX_RETRIES", 2, 0, 10)
	cfg.SourceMaxBodyBytes = int64(r.intBetween("SOURCE_MAX_BODY_BYTES", 32<<20, 1, maxInt))
	cfg.SourceCircuitEnabled = r.boolean("SOURCE_CIRCUIT_ENABLED", true)
	cfg.SourceCircuitFailureCount = r.intBetween("SOURCE_CIRCUIT_FAILURE_COUNT", 5, 1, maxInt)
	cfg.SourceCircuitOpenTimeout = r.duration("SOURCE_CIRCUIT_OPEN_TIMEOUT", 15*time.Second)
	cfg.SourceCircuitHalfOpenMaxReq = r.intBetween("SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ", 2, 1, maxInt)

	cfg.HistoryMaxWorkers = r.intBetween("HISTORY_MAX_WORKERS", 4, 1, MaxHistoryWorkers)
	cfg.CacheEnabled = r.boolean("CACHE_ENABLED", true)
	cfg.CacheTTL = r.duration("CACHE_TTL", 60*time.Second)
	cfg.DefaultLanguage = r.oneOf("DEFAULT_LANGUAGE", "en", "en", "de")

	cfg.StoreDriver = r.oneOf("STORE_DRIVER", StoreMemory, StoreMemory, StorePostgres)
	cfg.DBURL = r.str("DB_URL", "")
	if cfg.StoreDriver == StorePostgres && cfg.DBURL == "" {
		r.fail("DB_URL is required when STORE_DRIVER=%s", StorePostgres)
	}
	cfg.DBDisablePreparedBinary = r.boolean("DB_DISABLE_PREPARED_BINARY_RESULT", true)

	cfg.PprofEnabled = r.boolean("PPROF_ENABLED", false)
	cfg.PprofAddr = r.str("PPROF_ADDR", ":6060")

	cfg.UptraceEnabled = r.boolean("UPTRACE_ENABLED", false)
	cfg.UptraceDSN = r.str("UPTRACE_DSN", uptraceDSNFromOTLPHeaders(r.str("OTEL_EXPORTER_OTLP_HEADERS", "")))
	r.require(cfg.UptraceEnabled, cfg.UptraceDSN, "UPTRACE_DSN", "UPTRACE_ENABLED")

	cfg.BetterStackEnabled = r.boolean("BETTERSTACK_ENABLED", false)
	cfg.BetterStackEndpoint = r.str("BETTERSTACK_ENDPOINT", "")
	cfg.BetterStackToken = r.str("BETTERSTACK_TOKEN", "")
	cfg.BetterStackTimeout = r.duration("BETTERSTACK_TIMEOUT", 3*time.Second)
	cfg.BetterStackMinLevel = logging.ParseLevel(r.str("BETTERSTACK_MIN_LEVEL", "error"))
	r.require(cfg.BetterStackEnabled, cfg.BetterStackEndpoint, "BETTERSTACK_ENDPOINT", "BETTERSTACK_ENABLED")

	cfg.PyroscopeEnabled = r.boolean("PYROSCOPE_ENABLED", false)
	cfg.PyroscopeServerAddress = r.str("PYROSCOPE_SERVER_ADDRESS", "")
	cfg.PyroscopeAppName = r.str("PYROSCOPE_APP_NAME", cfg.ServiceName)
	cfg.PyroscopeAuthToken = r.str("PYROSCOPE_AUTH_TOKEN", "")
	cfg.PyroscopeBasicAuthUser = r.str("PYROSCOPE_BASIC_AUTH_USER", "")
	cfg.PyroscopeBasicAuthPassword = r.str("PYROSCOPE_BASIC_AUTH_PASSWORD", "")
	cfg.PyroscopeUploadRate = r.duration("PYROSCOPE_UPLOAD_RATE", 15*time.Second)
	r.require(cfg.PyroscopeEnabled, cfg.PyroscopeServerAddress, "PYROSCOPE_SERVER_ADDRESS", "PYROSCOPE_ENABLED")
	r.require(cfg.PyroscopeEnabled, cfg.PyroscopeAppName, "PYROSCOPE_APP_NAME", "PYROSCOPE_ENABLED")

	if err := r.err(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Package config provides environment-driven configuration for navgraph.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/persistorai/navgraph/internal/models"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Parcel store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Matcher index implementations.
const (
	IndexGrid       = "grid"
	IndexBruteForce = "bruteforce"
)

// Config holds all application configuration values.
type Config struct {
	// Storage.
	ParcelStore string
	DatabaseURL Secret
	DBMaxConns  int
	DataDir     string
	RedisURL    Secret
	SnapshotTTL time.Duration

	// Graph and query tuning.
	MaxBridgeDistance      float64
	TopComponents          int
	DiagnosticsTimeout     time.Duration
	DiagnosticsConcurrency int
	MatchIndex             string
	PreloadOnStart         bool
	WatchChanges           bool

	// HTTP and logging.
	Port        string
	ListenHost  string
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from ENV_FILE (default ".env", optional) are applied first without
// overriding anything already set in the environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		ParcelStore: strings.ToLower(envOrDefault("PARCEL_STORE", StoreFile)),
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		DataDir:     envOrDefault("DATA_DIR", "./data"),
		RedisURL:    Secret(envOrDefault("REDIS_URL", "")),
		MatchIndex:  strings.ToLower(envOrDefault("MATCH_INDEX", IndexGrid)),
		Port:        envOrDefault("PORT", "3040"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
	}

	var err error

	if cfg.DBMaxConns, err = intEnv("DB_MAX_CONNS", 10, 1, 200); err != nil {
		return nil, err
	}

	if cfg.TopComponents, err = intEnv("TOP_COMPONENTS", models.DefaultTopComponents, 1, 100); err != nil {
		return nil, err
	}

	if cfg.DiagnosticsConcurrency, err = intEnv("DIAGNOSTICS_CONCURRENCY", 2, 1, 64); err != nil {
		return nil, err
	}

	if cfg.RateBurst, err = intEnv("RATE_LIMIT_BURST", 40, 1, 10000); err != nil {
		return nil, err
	}

	if cfg.MaxBridgeDistance, err = floatEnv("MAX_BRIDGE_DISTANCE_M", models.DefaultMaxBridgeDistance); err != nil {
		return nil, err
	}

	if cfg.RateLimit, err = floatEnv("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}

	if cfg.DiagnosticsTimeout, err = durationEnv("DIAGNOSTICS_TIMEOUT", models.DefaultDiagnosticsTimeout); err != nil {
		return nil, err
	}

	if cfg.SnapshotTTL, err = durationEnv("SNAPSHOT_TTL", 0); err != nil {
		return nil, err
	}

	if cfg.PreloadOnStart, err = boolEnv("PRELOAD_ON_START", true); err != nil {
		return nil, err
	}

	if cfg.WatchChanges, err = boolEnv("WATCH_CHANGES", true); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""

	if !explicit {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}

	return fmt.Errorf("loading env file %s: %w", path, err)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func intEnv(key string, fallback, lo, hi int) (int, error) {
	v, err := strconv.Atoi(envOrDefault(key, strconv.Itoa(fallback)))
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v, err := strconv.ParseFloat(envOrDefault(key, strconv.FormatFloat(fallback, 'f', -1, 64)), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, err := time.ParseDuration(envOrDefault(key, fallback.String()))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
	}

	return v, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v, err := strconv.ParseBool(envOrDefault(key, strconv.FormatBool(fallback)))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}

	return v, nil
}

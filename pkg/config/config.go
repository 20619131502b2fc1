package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the primary gin-based plugin HTTP surface.
type ServerConfig struct {
	Host string `json:"host" env:"SERVER_HOST"`
	Port int    `json:"port" env:"SERVER_PORT"`
}

// AdminConfig controls the separate gorilla/mux listener that serves the
// health and Prometheus metrics endpoints away from plugin traffic.
type AdminConfig struct {
	Host string `json:"host" env:"ADMIN_HOST"`
	Port int    `json:"port" env:"ADMIN_PORT"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// AuditConfig controls the audit pipeline's hash-chained entry store.
type AuditConfig struct {
	// Enabled turns on the audit pipeline plugin.
	Enabled bool `json:"enabled" env:"AUDIT_ENABLED"`

	// ChainSecret seeds the SHA3-256 hash chain's genesis entry.
	ChainSecret string `json:"chain_secret" env:"AUDIT_CHAIN_SECRET"`

	// SQLDSN, if set, switches the audit store from the in-memory
	// reference implementation to the sqlx/lib/pq-backed one.
	SQLDSN string `json:"sql_dsn" env:"AUDIT_SQL_DSN"`

	// RetentionDays is how long entries are kept before the audit
	// pipeline's Purge deletes them; 0 means unbounded.
	RetentionDays int `json:"retention_days" env:"AUDIT_RETENTION_DAYS"`
}

// PermissionConfig controls the object/field/record Permission Engine's
// evaluation cache.
type PermissionConfig struct {
	// RedisAddr, if set, backs the per-user permission cache with Redis
	// instead of the in-process TTL cache.
	RedisAddr string `json:"redis_addr" env:"PERMISSION_REDIS_ADDR"`
	CacheTTL  int    `json:"cache_ttl_seconds" env:"PERMISSION_CACHE_TTL_SECONDS"`
}

// JobQueueConfig controls the priority job queue's dispatch loop.
type JobQueueConfig struct {
	Workers    int    `json:"workers" env:"JOBQUEUE_WORKERS"`
	CronSpec   string `json:"cron_spec" env:"JOBQUEUE_CRON_SPEC"`
	MaxRetries int    `json:"max_retries" env:"JOBQUEUE_MAX_RETRIES"`
}

// NotificationConfig controls the notification queue's dispatch loop.
type NotificationConfig struct {
	Workers  int    `json:"workers" env:"NOTIFY_WORKERS"`
	CronSpec string `json:"cron_spec" env:"NOTIFY_CRON_SPEC"`
	// Synchronous bypasses the queue and dispatches notifications inline,
	// used in tests and single-node deployments without a worker pool.
	Synchronous bool `json:"synchronous" env:"NOTIFY_SYNCHRONOUS"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Namespace string `json:"namespace" env:"METRICS_NAMESPACE"`
	Path      string `json:"path" env:"METRICS_PATH"`
}

// AuthConfig controls bearer-token authentication at the HTTP boundary.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

// RateLimitConfig controls the public API's per-key request budget. The
// kernel has no built-in request timeout (spec.md §5); this is the HTTP
// adapter's enforcement of that expectation.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int     `json:"burst" env:"RATE_LIMIT_BURST"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig       `json:"server"`
	Admin      AdminConfig        `json:"admin"`
	Logging    LoggingConfig      `json:"logging"`
	Audit      AuditConfig        `json:"audit"`
	Permission PermissionConfig   `json:"permission"`
	JobQueue   JobQueueConfig     `json:"job_queue"`
	Notify     NotificationConfig `json:"notify"`
	Metrics    MetricsConfig      `json:"metrics"`
	Auth       AuthConfig         `json:"auth"`
	RateLimit  RateLimitConfig    `json:"rate_limit"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Admin: AdminConfig{
			Host: "0.0.0.0",
			Port: 8081,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "objectosd",
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 0,
		},
		Permission: PermissionConfig{
			CacheTTL: 300,
		},
		JobQueue: JobQueueConfig{
			Workers:    4,
			CronSpec:   "@every 5s",
			MaxRetries: 3,
		},
		Notify: NotificationConfig{
			Workers:  2,
			CronSpec: "@every 5s",
		},
		Metrics: MetricsConfig{
			Namespace: "objectos",
			Path:      "/metrics",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return nil
}

// LoadConfig is a helper used by tests to load JSON config snippets.
func LoadConfig(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

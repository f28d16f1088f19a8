package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Subscription delivery modes.
const (
	SubscriptionPush = "push"
	SubscriptionPoll = "poll"
)

// Auto-response status merge policies.
const (
	StatusPolicyAlways = "always"
	StatusPolicyIfOpen = "if_open"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	AutoResponse AutoResponseConfig
	Subscription SubscriptionConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects and configures the ticket backend.
type StoreConfig struct {
	Backend   string
	LocalPath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines staff authentication parameters.
type AuthConfig struct {
	RequireStaff          bool
	JWTSecret             string
	AccessTokenTTLMinutes int
	StaffUsername         string
	StaffPasswordHash     string
}

// AutoResponseConfig controls the canned-reply scheduler.
type AutoResponseConfig struct {
	Delay        time.Duration
	StatusPolicy string
	CatalogPath  string
}

// SubscriptionConfig controls live ticket list delivery.
type SubscriptionConfig struct {
	Mode         string
	PollInterval time.Duration
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
// The result is not validated; callers run Validate once overrides are applied.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	delay, err := time.ParseDuration(getEnv("AUTO_RESPONSE_DELAY", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_RESPONSE_DELAY: %w", err)
	}
	pollInterval, err := time.ParseDuration(getEnv("SUBSCRIPTION_POLL_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUBSCRIPTION_POLL_INTERVAL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Backend:   strings.ToLower(getEnv("STORE_BACKEND", BackendLocal)),
			LocalPath: getEnv("STORE_LOCAL_PATH", "data/tickets.db"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Channel:  getEnv("REDIS_EVENTS_CHANNEL", "support-desk:ticket-events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			RequireStaff:          getEnvAsBool("AUTH_REQUIRE_STAFF", false),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			StaffUsername:         getEnv("AUTH_STAFF_USERNAME", "staff"),
			StaffPasswordHash:     os.Getenv("AUTH_STAFF_PASSWORD_HASH"),
		},
		AutoResponse: AutoResponseConfig{
			Delay:        delay,
			StatusPolicy: strings.ToLower(getEnv("AUTO_RESPONSE_STATUS_POLICY", StatusPolicyAlways)),
			CatalogPath:  os.Getenv("AUTO_RESPONSE_CATALOG"),
		},
		Subscription: SubscriptionConfig{
			Mode:         strings.ToLower(os.Getenv("SUBSCRIPTION_MODE")),
			PollInterval: pollInterval,
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Validate checks enumerated settings against the selected backend.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendLocal:
		if c.Store.LocalPath == "" {
			return fmt.Errorf("STORE_LOCAL_PATH required for %s backend", BackendLocal)
		}
	case BackendRemote:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN required for %s backend", BackendRemote)
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Subscription.Mode {
	case "", SubscriptionPush, SubscriptionPoll:
	default:
		return fmt.Errorf("invalid SUBSCRIPTION_MODE %q", c.Subscription.Mode)
	}
	if c.Subscription.PollInterval <= 0 {
		return fmt.Errorf("SUBSCRIPTION_POLL_INTERVAL must be positive")
	}

	switch c.AutoResponse.StatusPolicy {
	case StatusPolicyAlways, StatusPolicyIfOpen:
	default:
		return fmt.Errorf("invalid AUTO_RESPONSE_STATUS_POLICY %q", c.AutoResponse.StatusPolicy)
	}
	if c.AutoResponse.Delay < 0 {
		return fmt.Errorf("AUTO_RESPONSE_DELAY must not be negative")
	}

	if c.Auth.RequireStaff && c.Auth.StaffPasswordHash == "" {
		return fmt.Errorf("AUTH_STAFF_PASSWORD_HASH required when AUTH_REQUIRE_STAFF is set")
	}
	return nil
}

// SubscriptionMode returns the configured delivery mode, defaulting to
// polling for the local backend and push for the remote one.
func (c *Config) SubscriptionMode() string {
	if c.Subscription.Mode != "" {
		return c.Subscription.Mode
	}
	if c.Store.Backend == BackendRemote {
		return SubscriptionPush
	}
	return SubscriptionPoll
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

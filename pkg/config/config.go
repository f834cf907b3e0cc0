// Package config loads application configuration from LEDGERLINE_*
// environment variables with sensible defaults, validated at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerline/ledgerline/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Sessions      SessionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds token signing and policy settings
type AuthConfig struct {
	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration
	PolicyFile  string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds tenant cache tuning
type CacheConfig struct {
	LocalSize int
	TTL       time.Duration
}

// SessionConfig holds session lifecycle settings
type SessionConfig struct {
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("LEDGERLINE_HOST", "0.0.0.0"),
			Port:            getEnv("LEDGERLINE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("LEDGERLINE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("LEDGERLINE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("LEDGERLINE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("LEDGERLINE_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodyBytes:    getEnvInt64("LEDGERLINE_MAX_BODY_BYTES", 1<<20),
			HealthPort:      getEnv("LEDGERLINE_HEALTH_PORT", "9090"),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("LEDGERLINE_TOKEN_SECRET", ""),
			TokenIssuer: getEnv("LEDGERLINE_TOKEN_ISSUER", "ledgerline"),
			TokenTTL:    getEnvDuration("LEDGERLINE_TOKEN_TTL", 12*time.Hour),
			PolicyFile:  getEnv("LEDGERLINE_POLICY_FILE", ""),
		},
		Database: DatabaseConfig{
			URL:         getEnv("LEDGERLINE_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("LEDGERLINE_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("LEDGERLINE_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("LEDGERLINE_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("LEDGERLINE_POSTGRES_MAX_LIFETIME", time.Hour),
			MaxIdleTime: getEnvDuration("LEDGERLINE_POSTGRES_MAX_IDLE_TIME", 10*time.Minute),
			AutoMigrate: getEnvBool("LEDGERLINE_POSTGRES_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("LEDGERLINE_REDIS_ENABLED", false),
			Addr:     getEnv("LEDGERLINE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("LEDGERLINE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("LEDGERLINE_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			LocalSize: getEnvInt("LEDGERLINE_TENANT_CACHE_SIZE", 1024),
			TTL:       getEnvDuration("LEDGERLINE_TENANT_CACHE_TTL", 5*time.Minute),
		},
		Sessions: SessionConfig{
			SweepSchedule: getEnv("LEDGERLINE_SESSION_SWEEP_SCHEDULE", "*/10 * * * *"),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("LEDGERLINE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("LEDGERLINE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("LEDGERLINE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("LEDGERLINE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("LEDGERLINE_OTEL_SERVICE_NAME", "ledgerline"),
			OTelServiceVersion: getEnv("LEDGERLINE_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("LEDGERLINE_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("token secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

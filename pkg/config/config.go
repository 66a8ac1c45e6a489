package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/trimslot/trimslot/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Revocation RevocationConfig
	Policy     PolicyConfig

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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the revocation cache settings. Redis is optional; with
// no URL configured every IsRevoked goes straight to PostgreSQL.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds credential issuance settings
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// RevocationConfig holds compaction settings
type RevocationConfig struct {
	CompactionInterval time.Duration
}

// PolicyConfig holds feature-grant settings
type PolicyConfig struct {
	ManifestPath   string
	GrantCacheSize int
	GrantCacheTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TRIMSLOT_HOST", "0.0.0.0"),
			Port:            getEnv("TRIMSLOT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TRIMSLOT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TRIMSLOT_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TRIMSLOT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TRIMSLOT_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("TRIMSLOT_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("TRIMSLOT_POSTGRES_URL", ""),
			MaxOpenConns:    getEnvInt("TRIMSLOT_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns:    getEnvInt("TRIMSLOT_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("TRIMSLOT_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("TRIMSLOT_REDIS_URL", ""),
			Password: getEnv("TRIMSLOT_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TRIMSLOT_REDIS_DB", 0),
			PoolSize: getEnvInt("TRIMSLOT_REDIS_POOL_SIZE", 10),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("TRIMSLOT_TOKEN_SECRET", ""),
			TokenTTL:    getEnvDuration("TRIMSLOT_TOKEN_TTL", 12*time.Hour),
		},
		Revocation: RevocationConfig{
			CompactionInterval: getEnvDuration("TRIMSLOT_COMPACTION_INTERVAL", 5*time.Minute),
		},
		Policy: PolicyConfig{
			ManifestPath:   getEnv("TRIMSLOT_FEATURE_MANIFEST", ""),
			GrantCacheSize: getEnvInt("TRIMSLOT_GRANT_CACHE_SIZE", 1024),
			GrantCacheTTL:  getEnvDuration("TRIMSLOT_GRANT_CACHE_TTL", time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("TRIMSLOT_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("TRIMSLOT_METRICS_ENABLED", true),
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
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Revocation.CompactionInterval <= 0 {
		return fmt.Errorf("compaction interval must be positive")
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/careloop/appointment-engine/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Booking  BookingConfig
	Sweep    SweepConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig holds bearer-token verifier configuration. The session
// layer itself is an external collaborator; the engine only needs to know
// where to verify tokens.
type SessionConfig struct {
	Verifier string // "remote" or "mock"
	Endpoint string
	Timeout  time.Duration
}

// BookingConfig holds the scheduling policy knobs
type BookingConfig struct {
	OpenHour      int
	CloseHour     int
	Granularity   time.Duration
	CancelCutoff  time.Duration
	CartIdleTTL   time.Duration
	DefaultTZ     string
	SlotPrices    map[string]float64
}

// SweepConfig holds the completion sweep schedule
type SweepConfig struct {
	Enabled  bool
	CronSpec string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from the environment, reading a .env file
// first when one is present. When VAULT_ENABLED is set, secrets are
// pulled from Vault into the environment before anything is read.
func Load() (*Config, error) {
	_ = godotenv.Load()

	vaultCfg := secrets.LoadVaultConfigFromEnv("")
	if _, err := secrets.ApplyVaultSecrets(context.Background(), vaultCfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "appointment_engine"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Verifier: getEnv("SESSION_VERIFIER", "mock"),
			Endpoint: getEnv("SESSION_ENDPOINT", ""),
			Timeout:  getEnvAsDuration("SESSION_TIMEOUT", 5*time.Second),
		},
		Booking: BookingConfig{
			OpenHour:     getEnvAsInt("BOOKING_OPEN_HOUR", 8),
			CloseHour:    getEnvAsInt("BOOKING_CLOSE_HOUR", 20),
			Granularity:  getEnvAsDuration("BOOKING_GRANULARITY", 15*time.Minute),
			CancelCutoff: getEnvAsDuration("BOOKING_CANCEL_CUTOFF", time.Hour),
			CartIdleTTL:  getEnvAsDuration("CART_IDLE_TTL", 30*time.Minute),
			DefaultTZ:    getEnv("BOOKING_TIMEZONE", "UTC"),
			SlotPrices: map[string]float64{
				"short":    getEnvAsFloat("BOOKING_PRICE_SHORT", 25),
				"standard": getEnvAsFloat("BOOKING_PRICE_STANDARD", 50),
				"extended": getEnvAsFloat("BOOKING_PRICE_EXTENDED", 90),
			},
		},
		Sweep: SweepConfig{
			Enabled:  getEnvAsBool("SWEEP_ENABLED", true),
			CronSpec: getEnv("SWEEP_CRON", "@every 5m"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "appointment-engine"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

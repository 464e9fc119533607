package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "appointment_engine", cfg.Database.Database)
	assert.Equal(t, "mock", cfg.Session.Verifier)
	assert.Equal(t, 8, cfg.Booking.OpenHour)
	assert.Equal(t, 20, cfg.Booking.CloseHour)
	assert.Equal(t, 15*time.Minute, cfg.Booking.Granularity)
	assert.Equal(t, time.Hour, cfg.Booking.CancelCutoff)
	assert.Equal(t, 30*time.Minute, cfg.Booking.CartIdleTTL)
	assert.Equal(t, "UTC", cfg.Booking.DefaultTZ)
	assert.Equal(t, 50.0, cfg.Booking.SlotPrices["standard"])
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, "@every 5m", cfg.Sweep.CronSpec)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BOOKING_GRANULARITY", "30m")
	t.Setenv("BOOKING_CANCEL_CUTOFF", "2h")
	t.Setenv("BOOKING_PRICE_EXTENDED", "120.5")
	t.Setenv("SESSION_VERIFIER", "remote")
	t.Setenv("SESSION_ENDPOINT", "http://sessions.internal/verify")
	t.Setenv("SWEEP_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Booking.Granularity)
	assert.Equal(t, 2*time.Hour, cfg.Booking.CancelCutoff)
	assert.Equal(t, 120.5, cfg.Booking.SlotPrices["extended"])
	assert.Equal(t, "remote", cfg.Session.Verifier)
	assert.Equal(t, "http://sessions.internal/verify", cfg.Session.Endpoint)
	assert.False(t, cfg.Sweep.Enabled)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("BOOKING_GRANULARITY", "soon")
	t.Setenv("SWEEP_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Booking.Granularity)
	assert.True(t, cfg.Sweep.Enabled)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "engine",
		Password: "hunter2",
		Database: "appointments",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=engine password=hunter2 dbname=appointments sslmode=require",
		cfg.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}

func TestLoad_VaultDisabledByDefault(t *testing.T) {
	os.Unsetenv("VAULT_ENABLED")

	_, err := Load()
	assert.NoError(t, err)
}

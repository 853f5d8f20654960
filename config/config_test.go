package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "sqlite3", cfg.Database.SQLite.Driver)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 3, cfg.Store.Retry.MaxAttempts)
	assert.Equal(t, 7, cfg.App.ShortCodeLength)
	assert.Equal(t, 5, cfg.App.MaxGenerateAttempts)
	assert.Equal(t, 20, cfg.App.List.DefaultLimit)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("APP_BASE_URL", "https://short.example")
	t.Setenv("APP_ALLOW_ANONYMOUS", "false")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.Timeout)
	assert.Equal(t, "https://short.example", cfg.App.BaseURL)
	assert.False(t, cfg.App.AllowAnonymous)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "./data/shortener.db", cfg.GetDatabaseURL())
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	t.Run("short code too short", func(t *testing.T) {
		t.Setenv("APP_SHORT_CODE_LENGTH", "4")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("click increments without a retry", func(t *testing.T) {
		t.Setenv("CLICKS_RETRY_MAX_ATTEMPTS", "1")
		_, err := Load()
		assert.ErrorContains(t, err, "clicks.retry.max_attempts")
	})

	t.Run("store reads without an attempt", func(t *testing.T) {
		t.Setenv("STORE_RETRY_MAX_ATTEMPTS", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "store.retry.max_attempts")
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("DATABASE_TYPE", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})
}

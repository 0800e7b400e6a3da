package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"JWT_SIGNING_KEY": "secret",
		"STORAGE_BACKEND": "memory",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "localhost:8080", cfg.ListenAddr())
	assert.Equal(t, "bienestar", cfg.DBName)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "0 20 * * *", cfg.StreakCheckSchedule)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.SMTP.Enabled())
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, 2, cfg.NotifyConsumers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"JWT_SIGNING_KEY":       "secret",
		"MONGODB_URI":           "mongodb://localhost:27017",
		"SERVER_URL":            "http://0.0.0.0:9090",
		"APP_TIMEZONE":          "America/Mexico_City",
		"STREAK_CHECK_SCHEDULE": "30 21 * * *",
		"SMTP_EMAIL":            "app@example.com",
		"SMTP_PASSWORD":         "pw",
		"RATE_LIMIT_RPS":        "2.5",
		"LOG_FORMAT":            "Console",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageMongo, cfg.StorageBackend)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr())
	assert.Equal(t, "America/Mexico_City", cfg.Location.String())
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestValidationErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing signing key": {"STORAGE_BACKEND": "memory"},
		"mongo without uri":   {"JWT_SIGNING_KEY": "k"},
		"unknown backend":     {"JWT_SIGNING_KEY": "k", "STORAGE_BACKEND": "sqlite"},
		"bad timezone":        {"JWT_SIGNING_KEY": "k", "STORAGE_BACKEND": "memory", "APP_TIMEZONE": "Mars/Olympus"},
		"bad schedule":        {"JWT_SIGNING_KEY": "k", "STORAGE_BACKEND": "memory", "STREAK_CHECK_SCHEDULE": "every day"},
		"bad port":            {"JWT_SIGNING_KEY": "k", "STORAGE_BACKEND": "memory", "SMTP_PORT": "smtp"},
		"zero consumers":      {"JWT_SIGNING_KEY": "k", "STORAGE_BACKEND": "memory", "NOTIFY_CONSUMERS": "0"},
		"bad log format":      {"JWT_SIGNING_KEY": "k", "STORAGE_BACKEND": "memory", "LOG_FORMAT": "xml"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(env))
			assert.Error(t, err)
		})
	}
}

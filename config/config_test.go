package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/warp/vacation-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 30*time.Second, cfg.AppRequestTimeout)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Len(t, cfg.CORSOrigins, 2)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, zapcore.InfoLevel, cfg.Level())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_PATH", "/var/lib/vacaciones.db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOCK_TTL", "5s")
	t.Setenv("CORS_ORIGINS", "https://rrhh.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/var/lib/vacaciones.db", cfg.DBPath)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, []string{"https://rrhh.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"RATE_LIMIT_PER_MINUTE": "0",
		"LOG_LEVEL":             "chatty",
		"APP_READ_TIMEOUT":      "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

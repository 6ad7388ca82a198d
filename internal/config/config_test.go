package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "auth-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, BackendRedis, cfg.Auth.Backend)
	assert.Equal(t, "authorize:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 10*time.Second, cfg.Redis.RetryInterval())
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_BACKEND", "postgres")
	t.Setenv("AUTH_TOKEN_TTL_SECONDS", "120")
	t.Setenv("REDIS_KEY_PREFIX", "tenant-a:")
	t.Setenv("REDIS_BOOTSTRAP_RETRY_SECONDS", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Auth.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, "tenant-a:", cfg.Redis.KeyPrefix)
	assert.Equal(t, time.Second, cfg.Redis.RetryInterval())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("AUTH_BACKEND", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

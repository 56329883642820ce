package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, StoreMySQL, c.StoreBackend)
	assert.Equal(t, LockLocal, c.LockBackend)
	assert.Equal(t, 15*time.Second, c.LockTTL)
	assert.Equal(t, 3, c.MaxCommitRetries)
	assert.Equal(t, "placement.facts", c.FactExchange)
	assert.Equal(t, "OPERATOR", c.APIKeyRole)
	assert.True(t, c.FactConsumerEnabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("LOCK_BACKEND", "REDIS")
	t.Setenv("COMMAND_TIMEOUT", "2s")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("API_KEY_ROLE", "viewer")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, c.StoreBackend)
	assert.Equal(t, LockRedis, c.LockBackend)
	assert.Equal(t, 2*time.Second, c.CommandTimeout)
	assert.Equal(t, "VIEWER", c.APIKeyRole)
}

func TestFromEnvRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {},
		"bad store":       {"JWT_SECRET": "x", "STORE_BACKEND": "postgres"},
		"bad lock":        {"JWT_SECRET": "x", "LOCK_BACKEND": "zookeeper"},
		"lease too short": {"JWT_SECRET": "x", "LOCK_TTL": "1s", "COMMAND_TIMEOUT": "5s"},
		"bad duration":    {"JWT_SECRET": "x", "LOCK_WAIT": "soon"},
		"zero retries":    {"JWT_SECRET": "x", "MAX_COMMIT_RETRIES": "0"},
		"unbounded lease": {"JWT_SECRET": "x", "LOCK_BACKEND": "redis", "COMMAND_TIMEOUT": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnvLocalLockAllowsNoCommandTimeout(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("COMMAND_TIMEOUT", "0s")
	t.Setenv("MAX_COMMIT_RETRIES", "1")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Zero(t, c.CommandTimeout)
	assert.Equal(t, 1, c.MaxCommitRetries)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 10*time.Second, rl.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")

	cc := LoadCacheConfig()
	assert.True(t, cc.Methods["GET"])
	assert.True(t, cc.Methods["HEAD"])
	assert.Equal(t, time.Minute, cc.TTL)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	opts, err := RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	opts, err = RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", opts.Addr)

	t.Setenv("REDIS_URL", "redis://:pw@example:7000/3")
	opts, err = RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "example:7000", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
}

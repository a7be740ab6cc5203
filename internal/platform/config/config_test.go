package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Rationing.LockTimeout)
	assert.Equal(t, 3, cfg.Rationing.ConflictRetries)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PRS_LOCK_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DATABASE_MIGRATE", "true")
	t.Setenv("PRS_RATE_LIMIT", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Rationing.LockTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Database.Migrate)
	assert.Zero(t, cfg.RateLimit.RequestsPerWindow)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("PRS_COMMIT_TIMEOUT", "soon")
	t.Setenv("PRS_CONFLICT_RETRIES", "-1")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRS_COMMIT_TIMEOUT")
	assert.Contains(t, err.Error(), "PRS_CONFLICT_RETRIES")
}

func TestFromEnvRejectsLockTTLShorterThanCommit(t *testing.T) {
	t.Run("ttl equal to lock wait plus commit", func(t *testing.T) {
		t.Setenv("REDIS_LOCK_TTL", "7s")
		t.Setenv("PRS_LOCK_TIMEOUT", "2s")
		t.Setenv("PRS_COMMIT_TIMEOUT", "5s")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_LOCK_TTL")
	})

	t.Run("reported alongside malformed values", func(t *testing.T) {
		t.Setenv("REDIS_LOCK_TTL", "1s")
		t.Setenv("PRS_CONFLICT_RETRIES", "many")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_LOCK_TTL")
		assert.Contains(t, err.Error(), "PRS_CONFLICT_RETRIES")
	})

	t.Run("ttl above lock wait plus commit", func(t *testing.T) {
		t.Setenv("REDIS_LOCK_TTL", "8s")
		t.Setenv("PRS_LOCK_TIMEOUT", "2s")
		t.Setenv("PRS_COMMIT_TIMEOUT", "5s")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 8*time.Second, cfg.Redis.LockTTL)
	})
}

//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prs/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store, err := NewRedis(rc.Client)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("admits up to the limit", func(t *testing.T) {
		for i := range 3 {
			res, err := store.Allow(ctx, "actor:op-1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2-i, res.Remaining)
		}
		res, err := store.Allow(ctx, "actor:op-1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.True(t, res.ResetAt.After(time.Now()))

		ttl, err := rc.Client.PTTL(ctx, keyPrefix+"actor:op-1").Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
	})

	t.Run("window expires", func(t *testing.T) {
		_, err := store.Allow(ctx, "actor:op-2", 1, 200*time.Millisecond)
		require.NoError(t, err)
		res, err := store.Allow(ctx, "actor:op-2", 1, 200*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		time.Sleep(250 * time.Millisecond)
		res, err = store.Allow(ctx, "actor:op-2", 1, 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

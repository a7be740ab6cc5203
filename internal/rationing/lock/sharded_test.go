package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "prs/pkg/domain-errors"
)

func TestShardedAcquire(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		locker := NewSharded()
		var inside, peak int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := locker.Acquire(context.Background(), "alice:water:2026-10-12")
				if !assert.NoError(t, err) {
					return
				}
				defer release()
				n := atomic.AddInt32(&inside, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), peak)
	})

	t.Run("gives up when the context expires", func(t *testing.T) {
		locker := NewSharded()
		release, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(ctx, "k")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	t.Run("release is idempotent", func(t *testing.T) {
		locker := NewSharded()
		release, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		release()
		release()

		release2, err := locker.Acquire(context.Background(), "k")
		require.NoError(t, err)
		release2()
	})
}

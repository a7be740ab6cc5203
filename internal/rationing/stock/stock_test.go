package stock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prs/internal/rationing/ports"
	"prs/internal/rationing/store/memory"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/sentinel"
	"prs/pkg/testutil"
)

func TestReserve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	t.Run("takes units when available", func(t *testing.T) {
		store := memory.New()
		_, err := Restock(ctx, store, "loc-1", "water", 5, now)
		require.NoError(t, err)

		require.NoError(t, Reserve(ctx, store, "loc-1", "water", 5, now))
		lvl, err := store.GetStock(ctx, "loc-1", "water")
		require.NoError(t, err)
		assert.Equal(t, 0, lvl.Quantity)
	})

	t.Run("is all or nothing", func(t *testing.T) {
		store := memory.New()
		_, err := Restock(ctx, store, "loc-1", "water", 2, now)
		require.NoError(t, err)

		err = Reserve(ctx, store, "loc-1", "water", 3, now)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		lvl, err := store.GetStock(ctx, "loc-1", "water")
		require.NoError(t, err)
		assert.Equal(t, 2, lvl.Quantity)
	})

	t.Run("unknown location has no stock", func(t *testing.T) {
		err := Reserve(ctx, memory.New(), "loc-x", "water", 1, now)
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		err := Reserve(ctx, memory.New(), "loc-1", "water", 0, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	store := memory.New()

	level, err := Set(ctx, store, "loc-1", "water", 10, now)
	require.NoError(t, err)
	assert.Equal(t, 10, level)

	level, err = Set(ctx, store, "loc-1", "water", 4, now)
	require.NoError(t, err)
	assert.Equal(t, 4, level)

	_, err = Set(ctx, store, "loc-1", "water", -1, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestSetRacingASale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	testutil.Given(t, "a location holding ten units", func(t *testing.T) {
		store := memory.New()
		_, err := Restock(ctx, store, "loc-1", "water", 10, now)
		require.NoError(t, err)

		testutil.When(t, "a sale commits between the level read and the commit of a set", func(t *testing.T) {
			err := store.RunInTx(ctx, func(tx ports.TxStore) error {
				if _, err := Set(ctx, tx, "loc-1", "water", 4, now); err != nil {
					return err
				}
				return Reserve(ctx, store, "loc-1", "water", 1, now)
			})

			testutil.Then(t, "the set conflicts and only the sale is applied", func(t *testing.T) {
				assert.ErrorIs(t, err, sentinel.ErrConflict)
				lvl, err := store.GetStock(ctx, "loc-1", "water")
				require.NoError(t, err)
				assert.Equal(t, 9, lvl.Quantity)
			})

			testutil.Then(t, "a retried set lands on the requested level", func(t *testing.T) {
				err := store.RunInTx(ctx, func(tx ports.TxStore) error {
					_, err := Set(ctx, tx, "loc-1", "water", 4, now)
					return err
				})
				require.NoError(t, err)
				lvl, err := store.GetStock(ctx, "loc-1", "water")
				require.NoError(t, err)
				assert.Equal(t, 4, lvl.Quantity)
			})
		})
	})
}

func TestConcurrentReservations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	testutil.Given(t, "a location holding three units", func(t *testing.T) {
		store := memory.New()
		_, err := Restock(ctx, store, "loc-1", "water", 3, now)
		require.NoError(t, err)

		testutil.When(t, "five terminals reserve one unit each", func(t *testing.T) {
			var wg sync.WaitGroup
			var granted atomic.Int32
			for range 5 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if Reserve(ctx, store, "loc-1", "water", 1, now) == nil {
						granted.Add(1)
					}
				}()
			}
			wg.Wait()

			testutil.Then(t, "exactly three succeed and the level is zero", func(t *testing.T) {
				assert.Equal(t, int32(3), granted.Load())
				lvl, err := store.GetStock(ctx, "loc-1", "water")
				require.NoError(t, err)
				assert.Equal(t, 0, lvl.Quantity)
			})
		})
	})
}

package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitySet(t *testing.T) {
	t.Run("empty context has no capabilities", func(t *testing.T) {
		caps := Capabilities(context.Background())
		assert.False(t, caps.Has("process_purchase"))
		assert.Empty(t, caps.List())
	})

	t.Run("granted capabilities are matched exactly", func(t *testing.T) {
		ctx := WithCapabilities(context.Background(), NewCapabilitySet("update_stock", "process_purchase", "process_purchase", ""))
		caps := Capabilities(ctx)
		assert.True(t, caps.Has("process_purchase"))
		assert.True(t, caps.Has("update_stock"))
		assert.False(t, caps.Has("verify_vaccination"))
		assert.Equal(t, []string{"process_purchase", "update_stock"}, caps.List())
	})
}

func TestRequestMetadata(t *testing.T) {
	fixed := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	ctx := WithTime(WithRequestID(WithActorID(context.Background(), "merchant-7"), "req-1"), fixed)

	assert.Equal(t, "merchant-7", ActorID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}

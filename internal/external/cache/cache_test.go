package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip within ttl", func(t *testing.T) {
		c := NewMemory()
		require.NoError(t, c.Set(ctx, "epc:100023336956", []byte(`{"rating":"C"}`), time.Minute))

		value, hit, err := c.Get(ctx, "epc:100023336956")
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, []byte(`{"rating":"C"}`), value)
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		c := NewMemory()
		_, hit, err := c.Get(ctx, "flood:BS1 4DJ")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("entry expires lazily", func(t *testing.T) {
		c := NewMemory()
		now := time.Now()
		c.SetClock(func() time.Time { return now })

		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

		now = now.Add(2 * time.Minute)
		_, hit, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, hit, "expired entry must not surface")
	})

	t.Run("stored value is copied", func(t *testing.T) {
		c := NewMemory()
		payload := []byte("original")
		require.NoError(t, c.Set(ctx, "k", payload, time.Minute))
		payload[0] = 'X'

		value, hit, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, hit)
		assert.Equal(t, []byte("original"), value)
	})
}

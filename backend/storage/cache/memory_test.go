package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "flag", true, 0))
	require.NoError(t, c.Set(ctx, "doc", map[string]int{"n": 2}, 0))

	v, err := c.Get(ctx, "flag")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = c.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": float64(2)}, v)
}

func TestMemoryCacheMiss(t *testing.T) {
	_, err := NewMemoryCache().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.November, 28, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache().WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "token", "x", time.Minute))
	ok, err := c.Exists(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = c.Exists(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = c.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))

	require.NoError(t, c.Delete(ctx, "a"))
	ok, _ := c.Exists(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	ok, _ = c.Exists(ctx, "b")
	assert.False(t, ok)
}

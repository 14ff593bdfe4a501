package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	ctx := context.Background()
	ref := SessionRef{SessionID: "cs_1", URL: "https://pay.example/cs_1"}

	require.NoError(t, c.Set(ctx, "key-1", ref, time.Minute))

	got, err := c.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestMemoryCache_Miss(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key-1", SessionRef{SessionID: "cs_1"}, -time.Second))

	_, err := c.Get(ctx, "key-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_OverwriteSameKey(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key-1", SessionRef{SessionID: "cs_1"}, time.Minute))
	require.NoError(t, c.Set(ctx, "key-1", SessionRef{SessionID: "cs_2"}, time.Minute))

	got, err := c.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_2", got.SessionID)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCacheMissWithoutHotTier(t *testing.T) {
	c := NewSearchCache(nil, time.Hour)
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.NoError(t, c.Set(context.Background(), "k", []byte("v")))
}

func TestSearchCacheRoundTripsThroughMemoryRawTier(t *testing.T) {
	c := NewSearchCache(NewMemoryRawTier(10), time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "search:abc", []byte(`{"query":"x"}`)))
	raw, ok := c.Get(ctx, "search:abc")
	require.True(t, ok)
	assert.Equal(t, `{"query":"x"}`, string(raw))
}

func TestSearchCacheMissForUnknownKey(t *testing.T) {
	c := NewSearchCache(NewMemoryRawTier(10), time.Hour)
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestMemoryRawTierEvictsLeastRecentlyUsed(t *testing.T) {
	tier := NewMemoryRawTier(2)
	ctx := context.Background()

	require.NoError(t, tier.SetRaw(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, tier.SetRaw(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, tier.SetRaw(ctx, "c", []byte("3"), time.Hour))

	_, ok, _ := tier.GetRaw(ctx, "a")
	assert.False(t, ok, "oldest entry should have been evicted once capacity was exceeded")
	_, ok, _ = tier.GetRaw(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryRawTierExpiresEntriesPastTTL(t *testing.T) {
	tier := NewMemoryRawTier(10)
	ctx := context.Background()

	require.NoError(t, tier.SetRaw(ctx, "a", []byte("1"), time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, ok, _ := tier.GetRaw(ctx, "a")
	assert.False(t, ok)
}

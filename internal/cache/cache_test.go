package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

type stubWarm struct {
	calls int
	data  map[string]*store.GEOAggregate
	err   error
}

func (w *stubWarm) GetCompleteGEOData(_ context.Context, geoID string) (*store.GEOAggregate, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	return w.data[geoID], nil
}

func TestGetPromotesWarmHitIntoHotTier(t *testing.T) {
	hot := NewMemoryTier(10, time.Hour)
	warm := &stubWarm{data: map[string]*store.GEOAggregate{
		"GSE1": {GEO: store.GEODataset{GEOID: "GSE1"}},
	}}
	c := New(hot, warm, time.Hour)

	aggregate, err := c.Get(context.Background(), "GSE1")
	require.NoError(t, err)
	require.NotNil(t, aggregate)
	assert.Equal(t, 1, warm.calls)

	aggregate, err = c.Get(context.Background(), "GSE1")
	require.NoError(t, err)
	require.NotNil(t, aggregate)
	assert.Equal(t, 1, warm.calls, "second Get should be served from the hot tier")

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Promotions)
}

func TestInvalidateForcesNextGetToWarmTier(t *testing.T) {
	hot := NewMemoryTier(10, time.Hour)
	warm := &stubWarm{data: map[string]*store.GEOAggregate{
		"GSE1": {GEO: store.GEODataset{GEOID: "GSE1"}},
	}}
	c := New(hot, warm, time.Hour)

	_, err := c.Get(context.Background(), "GSE1")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background(), "GSE1"))

	_, err = c.Get(context.Background(), "GSE1")
	require.NoError(t, err)
	assert.Equal(t, 2, warm.calls)
}

func TestMemoryTierEvictsLeastRecentlyUsed(t *testing.T) {
	tier := NewMemoryTier(2, time.Hour)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "a", &store.GEOAggregate{}))
	require.NoError(t, tier.Set(ctx, "b", &store.GEOAggregate{}))
	_, ok, _ := tier.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, tier.Set(ctx, "c", &store.GEOAggregate{}))

	_, ok, _ = tier.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted as the least recently used entry")
	_, ok, _ = tier.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = tier.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryTierExpiresEntriesPastTTL(t *testing.T) {
	tier := NewMemoryTier(10, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "a", &store.GEOAggregate{}))
	time.Sleep(5 * time.Millisecond)

	_, ok, _ := tier.Get(ctx, "a")
	assert.False(t, ok)
}

func TestFallbackTierUsesMemoryWhenPrimaryErrors(t *testing.T) {
	primary := &erroringTier{err: assert.AnError}
	fallback := NewMemoryTier(10, time.Hour)
	tier := NewFallbackTier(primary, fallback)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "GSE1", &store.GEOAggregate{GEO: store.GEODataset{GEOID: "GSE1"}}))
	aggregate, ok, err := tier.Get(ctx, "GSE1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GSE1", aggregate.GEO.GEOID)
}

type erroringTier struct {
	err error
}

func (e *erroringTier) Get(context.Context, string) (*store.GEOAggregate, bool, error) {
	return nil, false, e.err
}

func (e *erroringTier) Set(context.Context, string, *store.GEOAggregate) error {
	return e.err
}

func (e *erroringTier) Delete(context.Context, string) error {
	return nil
}

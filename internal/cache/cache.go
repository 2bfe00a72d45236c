// Package cache implements the two-tier cache in front of a GEO
// dataset's complete aggregate view: a hot tier (Redis, or a bounded
// in-memory fallback) holding serialized aggregates with a TTL
// (seven days by default),
// backed by a warm tier that recomputes the aggregate from the
// primary store on a miss.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// HotTier is the fast path: a key/value store of serialized
// GEOAggregates keyed by GEO accession, with its own TTL and eviction
// policy. Both the Redis-backed and in-memory implementations satisfy
// this.
type HotTier interface {
	Get(ctx context.Context, geoID string) (*store.GEOAggregate, bool, error)
	Set(ctx context.Context, geoID string, aggregate *store.GEOAggregate) error
	Delete(ctx context.Context, geoID string) error
}

// Stats mirrors get_stats's {hits, misses, promotions, hit_rate}.
type Stats struct {
	Hits       int64
	Misses     int64
	Promotions int64
	HitRate    float64
}

// Cache composes a hot tier in front of the warm tier
// (store.AggregateStore.GetCompleteGEOData). A hot-tier miss falls
// through to the warm tier and promotes the result back into the hot
// tier so the next lookup is fast again.
type Cache struct {
	hot  HotTier
	warm store.AggregateStore
	ttl  time.Duration

	mu         sync.Mutex
	hits       int64
	misses     int64
	promotions int64
}

// New builds a Cache. If hot is nil, every lookup falls straight
// through to the warm tier (no caching, used by tests and by callers
// running without a configured hot tier).
func New(hot HotTier, warm store.AggregateStore, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Cache{hot: hot, warm: warm, ttl: ttl}
}

// Get returns the aggregate for geoID, checking the hot tier first
// and falling through to the warm tier on a miss. A warm-tier hit is
// promoted back into the hot tier before returning.
func (c *Cache) Get(ctx context.Context, geoID string) (*store.GEOAggregate, error) {
	if c.hot != nil {
		aggregate, ok, err := c.hot.Get(ctx, geoID)
		if err == nil && ok {
			c.recordHit()
			return aggregate, nil
		}
	}

	c.recordMiss()
	aggregate, err := c.warm.GetCompleteGEOData(ctx, geoID)
	if err != nil {
		return nil, err
	}

	if c.hot != nil && aggregate != nil {
		if err := c.hot.Set(ctx, geoID, aggregate); err == nil {
			c.recordPromotion()
		}
	}
	return aggregate, nil
}

// Update overwrites the hot-tier entry for geoID, used after a write
// to the primary store so the next Get doesn't serve stale data for
// up to the full TTL.
func (c *Cache) Update(ctx context.Context, geoID string, aggregate *store.GEOAggregate) error {
	if c.hot == nil {
		return nil
	}
	return c.hot.Set(ctx, geoID, aggregate)
}

// Invalidate evicts a single GEO id from the hot tier.
func (c *Cache) Invalidate(ctx context.Context, geoID string) error {
	if c.hot == nil {
		return nil
	}
	return c.hot.Delete(ctx, geoID)
}

// InvalidateBatch evicts many GEO ids, continuing past individual
// errors and returning the last one seen.
func (c *Cache) InvalidateBatch(ctx context.Context, geoIDs []string) error {
	if c.hot == nil {
		return nil
	}
	var lastErr error
	for _, id := range geoIDs {
		if err := c.hot.Delete(ctx, id); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// GetStats reports cumulative hit/miss/promotion counters since the
// Cache was constructed.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		Promotions: c.promotions,
		HitRate:    hitRate,
	}
}

func (c *Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

func (c *Cache) recordPromotion() {
	c.mu.Lock()
	c.promotions++
	c.mu.Unlock()
}

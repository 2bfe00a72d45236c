package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// RawTier is the hot-tier contract SearchCache needs: arbitrary byte
// blobs keyed by an opaque string, each with its own TTL. RedisTier
// satisfies this (GetRaw/SetRaw above) alongside its GEOAggregate
// methods; MemoryRawTier is the in-process fallback.
type RawTier interface {
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	SetRaw(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SearchCache holds merged, ranked search results keyed by a hash of
// the query and its result-limit parameters. It exists alongside
// Cache (which caches one GEO accession's complete aggregate) because
// a search response bundles many accessions plus per-source error
// status that doesn't belong under any single geo_id key.
type SearchCache struct {
	hot RawTier
	ttl time.Duration
}

// NewSearchCache builds a SearchCache. If hot is nil every Get misses
// and every Set is a no-op, so callers without a configured hot tier
// degrade to always recomputing the search.
func NewSearchCache(hot RawTier, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SearchCache{hot: hot, ttl: ttl}
}

// Get returns the raw cached payload for key, or ok=false on a miss or
// absent hot tier.
func (c *SearchCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.hot == nil {
		return nil, false
	}
	raw, ok, err := c.hot.GetRaw(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	return raw, true
}

// Set stores raw under key with the cache's configured TTL.
func (c *SearchCache) Set(ctx context.Context, key string, raw []byte) error {
	if c.hot == nil {
		return nil
	}
	return c.hot.SetRaw(ctx, key, raw, c.ttl)
}

// MemoryRawTier is the in-process RawTier used when no Redis endpoint
// is configured, bounded to maxEntries via least-recently-used
// eviction.
type MemoryRawTier struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
}

type rawEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryRawTier builds a bounded in-memory RawTier. maxEntries <= 0
// defaults to 1000.
func NewMemoryRawTier(maxEntries int) *MemoryRawTier {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryRawTier{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (m *MemoryRawTier) GetRaw(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*rawEntry)
	if time.Now().After(entry.expiresAt) {
		m.ll.Remove(el)
		delete(m.items, key)
		return nil, false, nil
	}
	m.ll.MoveToFront(el)
	return entry.value, true, nil
}

func (m *MemoryRawTier) SetRaw(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		ttl = time.Hour
	}
	if el, ok := m.items[key]; ok {
		entry := el.Value.(*rawEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(ttl)
		m.ll.MoveToFront(el)
		return nil
	}

	entry := &rawEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	el := m.ll.PushFront(entry)
	m.items[key] = el

	if m.ll.Len() > m.maxEntries {
		oldest := m.ll.Back()
		if oldest != nil {
			m.ll.Remove(oldest)
			delete(m.items, oldest.Value.(*rawEntry).key)
		}
	}
	return nil
}

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// MemoryTier is the in-process fallback hot tier used when no Redis
// endpoint is configured, or when the Redis tier is unreachable. It
// bounds itself to maxEntries using least-recently-used eviction,
// defaulting to 1000 entries.
type MemoryTier struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
}

type memoryEntry struct {
	geoID     string
	aggregate *store.GEOAggregate
	expiresAt time.Time
}

// NewMemoryTier builds a bounded in-memory hot tier. maxEntries <= 0
// defaults to 1000.
func NewMemoryTier(maxEntries int, ttl time.Duration) *MemoryTier {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MemoryTier{
		ttl:        ttl,
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (m *MemoryTier) Get(_ context.Context, geoID string) (*store.GEOAggregate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[geoID]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.ll.Remove(el)
		delete(m.items, geoID)
		return nil, false, nil
	}
	m.ll.MoveToFront(el)
	return entry.aggregate, true, nil
}

func (m *MemoryTier) Set(_ context.Context, geoID string, aggregate *store.GEOAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[geoID]; ok {
		entry := el.Value.(*memoryEntry)
		entry.aggregate = aggregate
		entry.expiresAt = time.Now().Add(m.ttl)
		m.ll.MoveToFront(el)
		return nil
	}

	entry := &memoryEntry{geoID: geoID, aggregate: aggregate, expiresAt: time.Now().Add(m.ttl)}
	el := m.ll.PushFront(entry)
	m.items[geoID] = el

	if m.ll.Len() > m.maxEntries {
		oldest := m.ll.Back()
		if oldest != nil {
			m.ll.Remove(oldest)
			delete(m.items, oldest.Value.(*memoryEntry).geoID)
		}
	}
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, geoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[geoID]; ok {
		m.ll.Remove(el)
		delete(m.items, geoID)
	}
	return nil
}

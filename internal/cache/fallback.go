package cache

import (
	"context"
	"log"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// FallbackTier wraps a primary HotTier (normally Redis) with a
// MemoryTier that absorbs reads and writes whenever the primary
// errors, so a Redis outage degrades the hot tier to in-process
// caching instead of forcing every request down to the warm tier.
type FallbackTier struct {
	primary  HotTier
	fallback *MemoryTier
}

// NewFallbackTier builds a FallbackTier. fallback is typically sized
// smaller than the primary's expected capacity since it only needs to
// absorb traffic during an outage window.
func NewFallbackTier(primary HotTier, fallback *MemoryTier) *FallbackTier {
	return &FallbackTier{primary: primary, fallback: fallback}
}

func (f *FallbackTier) Get(ctx context.Context, geoID string) (*store.GEOAggregate, bool, error) {
	aggregate, ok, err := f.primary.Get(ctx, geoID)
	if err == nil {
		return aggregate, ok, nil
	}
	log.Printf("cache: hot tier Get failed, using in-memory fallback: %v", err)
	return f.fallback.Get(ctx, geoID)
}

func (f *FallbackTier) Set(ctx context.Context, geoID string, aggregate *store.GEOAggregate) error {
	if err := f.primary.Set(ctx, geoID, aggregate); err != nil {
		log.Printf("cache: hot tier Set failed, using in-memory fallback: %v", err)
		return f.fallback.Set(ctx, geoID, aggregate)
	}
	return nil
}

func (f *FallbackTier) Delete(ctx context.Context, geoID string) error {
	err := f.primary.Delete(ctx, geoID)
	_ = f.fallback.Delete(ctx, geoID)
	return err
}

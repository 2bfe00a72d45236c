package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// RedisTier is the production hot tier: serialized GEOAggregates in
// Redis, keyed by "geo:{accession}" with a per-entry TTL.
type RedisTier struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTier connects to the given Redis URL (e.g.
// redis://localhost:6379/0). Connection errors surface on first use,
// not here, so a transient outage at startup doesn't block the
// server — callers should fall back to a MemoryTier if Get/Set keep
// failing.
func NewRedisTier(redisURL string, ttl time.Duration) (*RedisTier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisTier{client: redis.NewClient(opts), ttl: ttl}, nil
}

func redisKey(geoID string) string {
	return "geo:" + geoID
}

func (r *RedisTier) Get(ctx context.Context, geoID string) (*store.GEOAggregate, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(geoID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var aggregate store.GEOAggregate
	if err := json.Unmarshal(raw, &aggregate); err != nil {
		return nil, false, err
	}
	return &aggregate, true, nil
}

func (r *RedisTier) Set(ctx context.Context, geoID string, aggregate *store.GEOAggregate) error {
	raw, err := json.Marshal(aggregate)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(geoID), raw, r.ttl).Err()
}

func (r *RedisTier) Delete(ctx context.Context, geoID string) error {
	return r.client.Del(ctx, redisKey(geoID)).Err()
}

// Ping checks the Redis connection, used at startup to warn when Redis
// is unreachable; a failed Ping does not by itself stop RedisTier from
// being wired.
func (r *RedisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetRaw and SetRaw let RedisTier double as the hot tier for
// SearchCache's arbitrary-key byte blobs (merged search results),
// reusing the same Redis connection under a distinct key prefix.
func (r *RedisTier) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, "search:"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (r *RedisTier) SetRaw(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, "search:"+key, value, ttl).Err()
}

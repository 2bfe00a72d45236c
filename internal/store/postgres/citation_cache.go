package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// GetCitationCache returns nil, nil for both a missing row and an expired
// one — an expired entry is treated as absent.
func (s *Store) GetCitationCache(ctx context.Context, cacheKey string) (*store.CitationCacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var e store.CitationCacheEntry
	var resultJSON []byte
	err := s.db.QueryRow(ctx, `
		SELECT cache_key, geo_id, strategy, result_json, created_at, expires_at, hit_count
		FROM citation_discovery_cache WHERE cache_key = $1
	`, cacheKey).Scan(&e.CacheKey, &e.GEOID, &e.Strategy, &resultJSON, &e.CreatedAt, &e.ExpiresAt, &e.HitCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(e.ExpiresAt) {
		return nil, nil
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &e.ResultKeys); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (s *Store) PutCitationCache(ctx context.Context, entry store.CitationCacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resultJSON, err := json.Marshal(entry.ResultKeys)
	if err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO citation_discovery_cache (cache_key, geo_id, strategy, result_json, created_at, expires_at, hit_count)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT (cache_key) DO UPDATE SET
			result_json = EXCLUDED.result_json,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, entry.CacheKey, entry.GEOID, entry.Strategy, resultJSON, createdAt, entry.ExpiresAt)
	return err
}

func (s *Store) IncrementCitationCacheHitCount(ctx context.Context, cacheKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		UPDATE citation_discovery_cache SET hit_count = hit_count + 1 WHERE cache_key = $1
	`, cacheKey)
	return err
}

package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// UpsertURLCandidates persists a batch of candidates inside one
// transaction, unique on (identifier_key, url) — a re-collection that
// rediscovers the same URL refreshes its classification rather than
// duplicating the row.
func (s *Store) UpsertURLCandidates(ctx context.Context, candidates []store.URLCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range candidates {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return err
		}
		discoveredAt := c.DiscoveredAt
		if discoveredAt.IsZero() {
			discoveredAt = time.Now()
		}
		batch.Queue(`
			INSERT INTO publication_urls (identifier_key, url, url_type, source, priority, confidence, requires_auth, metadata, discovered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (identifier_key, url) DO UPDATE SET
				url_type = EXCLUDED.url_type,
				priority = EXCLUDED.priority,
				confidence = EXCLUDED.confidence,
				metadata = EXCLUDED.metadata
		`, c.IdentifierKey, c.URL, c.URLType, c.Source, c.Priority, c.Confidence, c.RequiresAuth, metadata, discoveredAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range candidates {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListURLCandidates(ctx context.Context, key string) ([]store.URLCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT identifier_key, url, url_type, source, priority, confidence, requires_auth, metadata, discovered_at
		FROM publication_urls WHERE identifier_key = $1
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.URLCandidate
	for rows.Next() {
		var c store.URLCandidate
		var metadata []byte
		if err := rows.Scan(&c.IdentifierKey, &c.URL, &c.URLType, &c.Source, &c.Priority, &c.Confidence, &c.RequiresAuth, &metadata, &c.DiscoveredAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// UpsertLink writes a geo_publications row, unique on (geo_id,
// identifier_key). A re-discovery refreshes relationship and strategy
// rather than duplicating the row; discovered_at keeps its first value.
func (s *Store) UpsertLink(ctx context.Context, link store.GEOPublicationLink) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	discoveredAt := link.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO geo_publications (geo_id, identifier_key, relationship, strategy, discovered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (geo_id, identifier_key) DO UPDATE SET
			relationship = EXCLUDED.relationship,
			strategy = EXCLUDED.strategy
	`, link.GEOID, link.IdentifierKey, link.Relationship, link.Strategy, discoveredAt)
	return err
}

func (s *Store) ListLinksByGEOID(ctx context.Context, geoID string) ([]store.GEOPublicationLink, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT geo_id, identifier_key, relationship, strategy, discovered_at
		FROM geo_publications WHERE geo_id = $1
	`, geoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.GEOPublicationLink
	for rows.Next() {
		var l store.GEOPublicationLink
		if err := rows.Scan(&l.GEOID, &l.IdentifierKey, &l.Relationship, &l.Strategy, &l.DiscoveredAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

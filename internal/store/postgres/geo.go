package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

func (s *Store) UpsertGEODataset(ctx context.Context, geo store.GEODataset) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	metadata, err := json.Marshal(geo.Metadata)
	if err != nil {
		return err
	}
	now := time.Now()

	_, err = s.db.Exec(ctx, `
		INSERT INTO geo_datasets (geo_id, title, summary, organism, platform, sample_count, original_pmids, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (geo_id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			organism = EXCLUDED.organism,
			platform = EXCLUDED.platform,
			sample_count = EXCLUDED.sample_count,
			original_pmids = EXCLUDED.original_pmids,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`,
		geo.GEOID, geo.Title, geo.Summary, geo.Organism, geo.Platform,
		geo.SampleCount, geo.OriginalPMIDs, metadata, now,
	)
	return err
}

func (s *Store) GetGEODatasetByID(ctx context.Context, geoID string) (*store.GEODataset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var geo store.GEODataset
	var metadata []byte
	err := s.db.QueryRow(ctx, `
		SELECT geo_id, title, summary, organism, platform, sample_count, original_pmids, metadata, created_at, updated_at
		FROM geo_datasets WHERE geo_id = $1
	`, geoID).Scan(
		&geo.GEOID, &geo.Title, &geo.Summary, &geo.Organism, &geo.Platform,
		&geo.SampleCount, &geo.OriginalPMIDs, &metadata, &geo.CreatedAt, &geo.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &geo.Metadata); err != nil {
			return nil, err
		}
	}
	return &geo, nil
}

func (s *Store) SearchGEODatasets(ctx context.Context, query string, limit int) ([]store.GEODataset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT geo_id, title, summary, organism, platform, sample_count, original_pmids, metadata, created_at, updated_at
		FROM geo_datasets
		WHERE $1 = '' OR title ILIKE '%' || $1 || '%' OR summary ILIKE '%' || $1 || '%'
		ORDER BY updated_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.GEODataset
	for rows.Next() {
		var geo store.GEODataset
		var metadata []byte
		if err := rows.Scan(
			&geo.GEOID, &geo.Title, &geo.Summary, &geo.Organism, &geo.Platform,
			&geo.SampleCount, &geo.OriginalPMIDs, &metadata, &geo.CreatedAt, &geo.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &geo.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, geo)
	}
	return out, rows.Err()
}

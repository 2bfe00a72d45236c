package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// Upsert writes pub. On an identifier_key conflict every column is
// overwritten with pub's values and updated_at is refreshed, so a second
// insert of an identical record changes nothing but updated_at.
func (s *Store) Upsert(ctx context.Context, pub store.Publication) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	metadata, err := json.Marshal(pub.Metadata)
	if err != nil {
		return err
	}
	now := time.Now()

	_, err = s.db.Exec(ctx, `
		INSERT INTO publications (identifier_key, pmid, doi, pmc_id, arxiv_id, title, authors, journal, year, metadata, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (identifier_key) DO UPDATE SET
			pmid = EXCLUDED.pmid,
			doi = EXCLUDED.doi,
			pmc_id = EXCLUDED.pmc_id,
			arxiv_id = EXCLUDED.arxiv_id,
			title = EXCLUDED.title,
			authors = EXCLUDED.authors,
			journal = EXCLUDED.journal,
			year = EXCLUDED.year,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`,
		pub.IdentifierKey, pub.PMID, pub.DOI, pub.PMCID, pub.ArXivID,
		pub.Title, pub.Authors, pub.Journal, pub.Year, metadata, now,
	)
	return err
}

func (s *Store) GetByIdentifierKey(ctx context.Context, key string) (*store.Publication, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pub, err := scanPublication(s.db.QueryRow(ctx, publicationSelect+` WHERE identifier_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func (s *Store) GetByIdentifierKeys(ctx context.Context, keys []string) ([]store.Publication, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, publicationSelect+` WHERE identifier_key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Publication
	for rows.Next() {
		pub, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pub)
	}
	return out, rows.Err()
}

const publicationSelect = `
	SELECT identifier_key, COALESCE(pmid,''), COALESCE(doi,''), COALESCE(pmc_id,''), COALESCE(arxiv_id,''),
	       title, authors, journal, year, metadata, created_at, updated_at
	FROM publications`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublication(row rowScanner) (*store.Publication, error) {
	var pub store.Publication
	var metadata []byte
	if err := row.Scan(
		&pub.IdentifierKey, &pub.PMID, &pub.DOI, &pub.PMCID, &pub.ArXivID,
		&pub.Title, &pub.Authors, &pub.Journal, &pub.Year, &metadata,
		&pub.CreatedAt, &pub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &pub.Metadata); err != nil {
			return nil, err
		}
	}
	return &pub, nil
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// CreateOrGetByHash implements the download-dedup invariant: file_hash is
// unique across cached_pdfs, so a second successful download of the same
// bytes returns the existing artifact with created=false instead of
// inserting a duplicate row.
func (s *Store) CreateOrGetByHash(ctx context.Context, artifact store.PDFArtifact) (*store.PDFArtifact, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if existing, err := s.getPDFByHash(ctx, artifact.FileHash); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	now := time.Now()
	if artifact.DownloadedAt.IsZero() {
		artifact.DownloadedAt = now
	}
	if artifact.LastAccessed.IsZero() {
		artifact.LastAccessed = now
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO cached_pdfs (identifier_key, file_path, file_hash, file_size, source, downloaded_at, last_accessed, access_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (identifier_key) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			file_hash = EXCLUDED.file_hash,
			file_size = EXCLUDED.file_size,
			source = EXCLUDED.source,
			downloaded_at = EXCLUDED.downloaded_at
	`, artifact.IdentifierKey, artifact.FilePath, artifact.FileHash, artifact.FileSize,
		artifact.Source, artifact.DownloadedAt, artifact.LastAccessed)
	if err != nil {
		return nil, false, err
	}
	return &artifact, true, nil
}

func (s *Store) getPDFByHash(ctx context.Context, hash string) (*store.PDFArtifact, error) {
	var a store.PDFArtifact
	err := s.db.QueryRow(ctx, `
		SELECT identifier_key, file_path, file_hash, file_size, source, downloaded_at, last_accessed, access_count
		FROM cached_pdfs WHERE file_hash = $1
	`, hash).Scan(&a.IdentifierKey, &a.FilePath, &a.FileHash, &a.FileSize, &a.Source, &a.DownloadedAt, &a.LastAccessed, &a.AccessCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetPDFArtifact(ctx context.Context, key string) (*store.PDFArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a store.PDFArtifact
	err := s.db.QueryRow(ctx, `
		SELECT identifier_key, file_path, file_hash, file_size, source, downloaded_at, last_accessed, access_count
		FROM cached_pdfs WHERE identifier_key = $1
	`, key).Scan(&a.IdentifierKey, &a.FilePath, &a.FileHash, &a.FileSize, &a.Source, &a.DownloadedAt, &a.LastAccessed, &a.AccessCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) TouchAccess(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		UPDATE cached_pdfs SET last_accessed = $2, access_count = access_count + 1
		WHERE identifier_key = $1
	`, key, time.Now())
	return err
}

package postgres

import (
	"context"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// AppendDownloadAttempt inserts one download_history row. The table is
// append-only: every attempt, retry, success, or failure gets its own row.
func (s *Store) AppendDownloadAttempt(ctx context.Context, attempt store.DownloadAttempt) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	downloadedAt := attempt.DownloadedAt
	if downloadedAt.IsZero() {
		downloadedAt = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO download_history (identifier_key, url, source, status, error_message, attempt_number, file_path, file_size, downloaded_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, NULLIF($7,''), $8, $9)
	`, attempt.IdentifierKey, attempt.URL, attempt.Source, attempt.Status,
		attempt.ErrorMessage, attempt.AttemptNumber, attempt.FilePath, attempt.FileSize, downloadedAt)
	return err
}

func (s *Store) ListDownloadAttempts(ctx context.Context, key string) ([]store.DownloadAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, identifier_key, url, source, status, COALESCE(error_message,''), attempt_number, COALESCE(file_path,''), file_size, downloaded_at
		FROM download_history WHERE identifier_key = $1
		ORDER BY downloaded_at ASC
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DownloadAttempt
	for rows.Next() {
		var a store.DownloadAttempt
		if err := rows.Scan(&a.ID, &a.IdentifierKey, &a.URL, &a.Source, &a.Status, &a.ErrorMessage, &a.AttemptNumber, &a.FilePath, &a.FileSize, &a.DownloadedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

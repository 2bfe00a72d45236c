// Package postgres implements internal/store.Store on top of PostgreSQL
// via pgx/pgxpool, with a per-call timeout on every query and
// upsert-on-conflict writes throughout.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// Store implements store.Store against a single pgxpool.Pool. Each
// sub-repository concern (publications, GEO datasets, URLs, downloads,
// citation cache, AI analysis) lives in its own file but all are methods
// on this one type, so the aggregate query can reuse the pool directly.
type Store struct {
	db *pgxpool.Pool
}

// New opens a connection pool against dsn and verifies connectivity.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{db: pool}, nil
}

func (s *Store) Close() { s.db.Close() }

var _ store.Store = (*Store)(nil)

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache (
	key        text PRIMARY KEY,
	value      jsonb NOT NULL,
	expires_at timestamptz NOT NULL
)`

// PostgresStore persists cache entries in Postgres so memoization survives
// restarts and is shared across instances pointed at the same database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the cache table if it does not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, cacheSchema); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, error) {
	entry := Entry{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT value, expires_at FROM cache WHERE key = $1`, key,
	).Scan(&entry.Value, &entry.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("select cache entry %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("select cache entry %q: %w", key, err)
	}
	return entry, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert cache entry %q: %w", key, err)
	}
	return nil
}

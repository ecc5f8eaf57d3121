package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		expires_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS kv_store_expires_at_idx ON kv_store (expires_at) WHERE expires_at IS NOT NULL;`

const live = `(expires_at IS NULL OR expires_at > now())`

// PostgresStore keeps every key as a row in the kv_store table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the kv_store table if needed
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate kv_store: %w", describe(err))
	}
	return nil
}

// Get returns the value stored under key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := `SELECT value FROM kv_store WHERE key = $1 AND ` + live
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, describe(err))
	}
	return value, nil
}

// Set upserts key
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO kv_store (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(value), expiresAt(ttl)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, describe(err))
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ANY($1)`, pq.Array(keys)); err != nil {
		return fmt.Errorf("failed to delete %d keys: %w", len(keys), describe(err))
	}
	return nil
}

// Scan returns every live entry whose key starts with prefix, ordered by key
func (s *PostgresStore) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	query := `SELECT key, value FROM kv_store WHERE left(key, length($1)) = $1 AND ` + live + ` ORDER BY key`
	rows, err := s.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s*: %w", prefix, describe(err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s*: %w", prefix, describe(err))
	}
	return entries, nil
}

// DeletePrefix removes every key starting with prefix
func (s *PostgresStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE left(key, length($1)) = $1`, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s*: %w", prefix, describe(err))
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Expire resets the ttl of an existing key
func (s *PostgresStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	res, err := s.db.ExecContext(ctx, `UPDATE kv_store SET expires_at = $2 WHERE key = $1 AND `+live, key, expiresAt(ttl))
	if err != nil {
		return fmt.Errorf("failed to expire %s: %w", key, describe(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepExpired physically deletes expired rows
func (s *PostgresStore) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired keys: %w", describe(err))
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func expiresAt(ttl time.Duration) sql.NullTime {
	if ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
}

// describe adds the postgres error code when there is one
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (code %s)", err, pqErr.Code)
	}
	return err
}

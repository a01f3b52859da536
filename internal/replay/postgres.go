package replay

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/x402kit/x402/internal/config"
	"github.com/x402kit/x402/internal/dbpool"
)

// PostgresStore implements Store using PostgreSQL, for deployments that run
// the gatekeeper behind more than one process and need a shared registry.
type PostgresStore struct {
	db        *sql.DB
	pool      *dbpool.SharedPool
	tableName string
}

// NewPostgresStore opens a PostgreSQL-backed replay registry over its own
// connection pool, creating its table if it doesn't already exist.
func NewPostgresStore(connectionString string, poolConfig config.PostgresPoolConfig) (*PostgresStore, error) {
	pool, err := dbpool.NewSharedPool(connectionString, poolConfig)
	if err != nil {
		return nil, err
	}

	store := &PostgresStore{db: pool.DB(), pool: pool, tableName: "x402_payment_claims"}
	if err := store.createTable(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB builds a PostgresStore over a caller-owned
// connection pool, shared with other tables.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db, tableName: "x402_payment_claims"}
	if err := store.createTable(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) createTable() error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	payment_id TEXT PRIMARY KEY,
	resource_id TEXT NOT NULL,
	claimed_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%s_expires_at ON %s (expires_at);
`, s.tableName, s.tableName, s.tableName)
	_, err := s.db.Exec(schema)
	return err
}

// Claim inserts a row for paymentID if absent-or-expired, atomically, via an
// upsert that only overwrites an expired claim.
func (s *PostgresStore) Claim(ctx context.Context, paymentID string, resourceID string, ttl time.Duration) (string, bool, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	query := fmt.Sprintf(`
INSERT INTO %s (payment_id, resource_id, claimed_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (payment_id) DO UPDATE
	SET resource_id = EXCLUDED.resource_id,
	    claimed_at = EXCLUDED.claimed_at,
	    expires_at = EXCLUDED.expires_at
	WHERE %s.expires_at < $3
RETURNING resource_id
`, s.tableName, s.tableName)

	var firstSeen string
	err := s.db.QueryRowContext(ctx, query, paymentID, resourceID, now, expiresAt).Scan(&firstSeen)
	if err == nil {
		return firstSeen, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("claim payment id: %w", err)
	}

	// The upsert's WHERE clause rejected the write: a live claim already exists.
	var existing string
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT resource_id FROM %s WHERE payment_id = $1", s.tableName),
		paymentID,
	).Scan(&existing)
	if err != nil {
		return "", false, fmt.Errorf("read existing claim: %w", err)
	}
	return existing, true, nil
}

// Close releases the underlying connection pool if this store opened it.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		return s.pool.Close()
	}
	return nil
}

package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pair_cache (
	metric     TEXT NOT NULL,
	origin_lon REAL NOT NULL,
	origin_lat REAL NOT NULL,
	dest_lon   REAL NOT NULL,
	dest_lat   REAL NOT NULL,
	cost       REAL NOT NULL,
	cached_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (metric, origin_lon, origin_lat, dest_lon, dest_lat)
);
`

// DB wraps the sqlite connection backing the pair cache.
type DB struct {
	conn  *sql.DB
	pairs PairCache
}

// Open opens (or creates) the cache database at path and ensures the schema
// exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &DB{conn: conn, pairs: &pairCacheRepository{db: conn}}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// HealthCheck verifies the connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Pairs returns the pair cache repository.
func (db *DB) Pairs() PairCache {
	return db.pairs
}

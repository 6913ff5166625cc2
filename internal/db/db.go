// Package db provides the PostgreSQL backend for monitors, check results and
// scheduler jobs.
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DB wraps a database/sql connection pool for PostgreSQL.
type DB struct {
	Pool *sql.DB
}

// New creates a new database connection.
// The caller must import a PostgreSQL driver (e.g., _ "github.com/lib/pq").
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs the database schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS monitors (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    url         TEXT NOT NULL,
    pipeline    JSONB NOT NULL,
    interval    INTEGER NOT NULL DEFAULT 60,
    schedule    TEXT NOT NULL DEFAULT '',
    enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    tags        JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_check  TIMESTAMPTZ,
    last_status TEXT NOT NULL DEFAULT ''
);

-- Results deliberately carry no foreign key: deleting a monitor keeps its
-- history as orphan records.
CREATE TABLE IF NOT EXISTS results (
    id          TEXT PRIMARY KEY,
    monitor_id  TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    elapsed_ms  DOUBLE PRECISION NOT NULL DEFAULT 0,
    details     JSONB NOT NULL DEFAULT '{}',
    checked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_results_monitor_checked ON results(monitor_id, checked_at DESC);

CREATE TABLE IF NOT EXISTS scheduler_jobs (
    monitor_id   TEXT PRIMARY KEY REFERENCES monitors(id) ON DELETE CASCADE,
    trigger_kind TEXT NOT NULL,
    trigger_spec TEXT NOT NULL,
    next_run_at  TIMESTAMPTZ NOT NULL,
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

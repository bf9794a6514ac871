package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"enrollment/internal/platform/config"
)

// Open connects to PostgreSQL and verifies the connection.
// Returns nil if no DSN is configured.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// Schema is the relational layout shared by the ledger, registration and journal
// stores. Registrations carry no foreign key so the ledger may live elsewhere.
// Applied with EnsureSchema on startup; real deployments manage it externally.
const Schema = `
CREATE TABLE IF NOT EXISTS courses (
	course_key  TEXT PRIMARY KEY,
	course_name TEXT NOT NULL DEFAULT '',
	professor   TEXT NOT NULL DEFAULT '',
	credits     INTEGER NOT NULL DEFAULT 0,
	department  TEXT NOT NULL DEFAULT '',
	year        INTEGER NOT NULL DEFAULT 0,
	capacity    INTEGER NOT NULL CHECK (capacity > 0),
	occupied    INTEGER NOT NULL DEFAULT 0 CHECK (occupied >= 0 AND occupied <= capacity)
);

CREATE TABLE IF NOT EXISTS seat_holds (
	course_key  TEXT NOT NULL REFERENCES courses (course_key),
	holder      TEXT NOT NULL,
	PRIMARY KEY (course_key, holder)
);

CREATE TABLE IF NOT EXISTS registrations (
	id          UUID PRIMARY KEY,
	student_id  TEXT NOT NULL,
	course_key  TEXT NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('Applied', 'Cancelled')),
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (student_id, course_key)
);

CREATE INDEX IF NOT EXISTS registrations_course_status ON registrations (course_key, status);

CREATE TABLE IF NOT EXISTS admission_journal (
	id          UUID PRIMARY KEY,
	stage       TEXT NOT NULL,
	student_id  TEXT NOT NULL,
	course_key  TEXT NOT NULL,
	transition  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	attempts    INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS admission_journal_pair ON admission_journal (student_id, course_key);
`

// EnsureSchema creates the tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates every table the service uses. The DDL is accepted by
// both SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createHospitalsQuery := `
	CREATE TABLE IF NOT EXISTS hospitals (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	`

	createHospitalsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_hospitals_lat_lon
	ON hospitals(lat, lon);
	`

	createPlaceCacheQuery := `
	CREATE TABLE IF NOT EXISTS place_cache (
		place_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		updated_at BIGINT NOT NULL
	);
	`

	createSessionsQuery := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		error_kind TEXT NOT NULL DEFAULT '',
		completion TEXT NOT NULL DEFAULT '',
		started_at BIGINT NOT NULL,
		ended_at BIGINT
	);
	`

	createSessionContactsQuery := `
	CREATE TABLE IF NOT EXISTS session_contacts (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		started_at BIGINT NOT NULL,
		PRIMARY KEY (session_id, position)
	);
	`

	createSessionsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_sessions_started_at
	ON sessions(started_at);
	`

	statements := []string{
		createHospitalsQuery,
		createHospitalsIndexQuery,
		createPlaceCacheQuery,
		createSessionsQuery,
		createSessionContactsQuery,
		createSessionsIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

package store

import "fmt"

// schema is portable between sqlite and postgres; times are unix millis.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		manifest    TEXT NOT NULL,
		status      TEXT NOT NULL,
		started_at  BIGINT NOT NULL,
		finished_at BIGINT,
		total       INTEGER NOT NULL DEFAULT 0,
		automatable INTEGER NOT NULL DEFAULT 0,
		manual      INTEGER NOT NULL DEFAULT 0,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		bytes       BIGINT NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS run_results (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		request_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		source     TEXT NOT NULL,
		outcome    TEXT NOT NULL,
		locator    TEXT NOT NULL,
		path       TEXT NOT NULL DEFAULT '',
		size       BIGINT NOT NULL DEFAULT 0,
		attempts   INTEGER NOT NULL DEFAULT 0,
		check_name TEXT NOT NULL DEFAULT '',
		message    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at)`,
}

func (s *PersistentStore) RunMigrations() error {
	for i, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
)

// schema is applied on every open; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		mode        TEXT NOT NULL,
		state       TEXT NOT NULL DEFAULT 'NOT_STARTED',
		config_path TEXT NOT NULL,
		log_path    TEXT NOT NULL DEFAULT '',
		job_id      TEXT NOT NULL DEFAULT '',
		dry_run     INTEGER NOT NULL DEFAULT 0,
		exit_code   INTEGER,
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_job_id ON runs(job_id) WHERE job_id != ''`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

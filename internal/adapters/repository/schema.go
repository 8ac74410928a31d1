package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// The statements are portable between SQLite and PostgreSQL; timestamps are
// unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		id            TEXT PRIMARY KEY,
		created_at    BIGINT  NOT NULL,
		gap_threshold INTEGER NOT NULL,
		record_count  INTEGER NOT NULL,
		period_count  INTEGER NOT NULL,
		fingerprint   TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extraction_runs_created ON extraction_runs(created_at)`,
	`CREATE TABLE IF NOT EXISTS periods (
		run_id      TEXT    NOT NULL,
		position    INTEGER NOT NULL,
		entity_code TEXT    NOT NULL,
		region_hint TEXT    NOT NULL,
		start_year  INTEGER NOT NULL,
		end_year    INTEGER NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS labeled_periods (
		position    INTEGER PRIMARY KEY,
		entity_code TEXT    NOT NULL,
		label       TEXT    NOT NULL,
		region_hint TEXT    NOT NULL,
		start_year  INTEGER NOT NULL,
		end_year    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_labeled_periods_code ON labeled_periods(entity_code, position)`,
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

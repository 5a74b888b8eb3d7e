package repository

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/clinical-extractor/internal/common"
)

// Portable across PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_run (
		id                 TEXT PRIMARY KEY,
		source             TEXT NOT NULL,
		mode               TEXT NOT NULL,
		status             TEXT NOT NULL,
		error_message      TEXT NOT NULL DEFAULT '',
		report_count       INTEGER NOT NULL DEFAULT 0,
		captured           INTEGER NOT NULL DEFAULT 0,
		expected           INTEGER NOT NULL DEFAULT 0,
		overall_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS extraction_run_created_at_idx ON extraction_run (created_at)`,
	`CREATE TABLE IF NOT EXISTS extraction_record (
		run_id     TEXT NOT NULL REFERENCES extraction_run (id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		report_id  TEXT NOT NULL,
		percentage DOUBLE PRECISION,
		payload    TEXT NOT NULL,
		PRIMARY KEY (run_id, report_id)
	)`,
}

// Migrate creates the run tables when missing.
func Migrate(ctx context.Context, d *DB) error {
	for _, stmt := range schema {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", common.ErrDatabase, err)
		}
	}
	return nil
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// migrations are applied in order; the database's PRAGMA user_version
// records how many have run. Append new steps, never edit old ones.
var migrations = []string{
	`CREATE TABLE queue_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_path TEXT NOT NULL,
		title TEXT,
		status TEXT NOT NULL,
		failed_at_status TEXT,
		error_message TEXT,
		options_json TEXT,
		transcript_path TEXT,
		paraphrase_path TEXT,
		audio_path TEXT,
		bundle_path TEXT,
		output_dir TEXT,
		progress_stage TEXT,
		progress_percent REAL DEFAULT 0,
		progress_message TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_heartbeat TEXT,
		request_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX idx_queue_items_status ON queue_items(status);
	CREATE INDEX idx_queue_items_source_path ON queue_items(source_path);
	CREATE INDEX idx_queue_items_heartbeat ON queue_items(status, last_heartbeat);`,
}

// ErrSchemaMismatch reports a database written by a newer lectern.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func latestSchemaVersion() int { return len(migrations) }

func userVersion(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate brings the database up to the latest schema in one transaction.
func (s *Store) migrate(ctx context.Context) error {
	current, err := userVersion(ctx, s.db)
	if err != nil {
		return err
	}
	latest := latestSchemaVersion()
	switch {
	case current == latest:
		return nil
	case current > latest:
		return fmt.Errorf("%w: database is at version %d but this build knows %d; upgrade lectern or remove %s",
			ErrSchemaMismatch, current, latest, s.path)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for step := current; step < latest; step++ {
		if _, err := tx.ExecContext(ctx, migrations[step]); err != nil {
			return fmt.Errorf("apply migration %d: %w", step+1, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", latest)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

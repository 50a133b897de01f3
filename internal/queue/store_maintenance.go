package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(orBackground(ctx), `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health folds the per-status counts into lifecycle buckets.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var summary HealthSummary
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusCompleted:
			summary.Completed += count
		case IsProcessingStatus(status):
			summary.Processing += count
		}
	}
	return summary, nil
}

// CheckHealth inspects the database file, schema and integrity. Errors found
// after the file is opened are also recorded in DatabaseHealth.Error.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat queue database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true
	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	ctx, cancel := context.WithTimeout(orBackground(ctx), 2*time.Second)
	defer cancel()
	fail := func(step string, err error) (DatabaseHealth, error) {
		health.Error = err.Error()
		return health, fmt.Errorf("%s: %w", step, err)
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fail("ping queue database", err)
	}
	health.DatabaseReadable = true

	version, err := userVersion(ctx, s.db)
	if err != nil {
		return fail("schema version", err)
	}
	health.SchemaVersion = strconv.Itoa(version)

	columns, err := s.tableColumns(ctx, "queue_items")
	if err != nil {
		return fail("table info", err)
	}
	health.TableExists = len(columns) > 0
	if health.TableExists {
		health.ColumnsPresent = columns
		for _, want := range itemColumnNames {
			if !slices.Contains(columns, want) {
				health.MissingColumns = append(health.MissingColumns, want)
			}
		}
		slices.Sort(health.MissingColumns)
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_items").Scan(&health.TotalItems); err != nil {
			return fail("count queue items", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fail("integrity check", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}

// tableColumns lists a table's columns; a missing table yields none.
func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// itemColumnNames is the SELECT order scanItem expects.
var itemColumnNames = []string{
	"id", "source_path", "title", "status", "failed_at_status", "error_message",
	"options_json", "transcript_path", "paraphrase_path", "audio_path", "bundle_path",
	"output_dir", "progress_stage", "progress_percent", "progress_message", "attempts",
	"last_heartbeat", "request_id", "created_at", "updated_at",
}

var itemColumns = strings.Join(itemColumnNames, ", ")

type rowScanner interface {
	Scan(dest ...any) error
}

// text scans a nullable TEXT column into a plain string, mapping NULL to "".
type text struct{ dst *string }

func (t text) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	*t.dst = ns.String
	return nil
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item                        Item
		status, failedAt, options   string
		heartbeat, created, updated string
		percent                     sql.NullFloat64
		attempts                    sql.NullInt64
	)
	err := row.Scan(
		&item.ID,
		text{&item.SourcePath},
		text{&item.Title},
		text{&status},
		text{&failedAt},
		text{&item.ErrorMessage},
		text{&options},
		text{&item.TranscriptPath},
		text{&item.ParaphrasePath},
		text{&item.AudioPath},
		text{&item.BundlePath},
		text{&item.OutputDir},
		text{&item.ProgressStage},
		&percent,
		text{&item.ProgressMessage},
		&attempts,
		text{&heartbeat},
		text{&item.RequestID},
		text{&created},
		text{&updated},
	)
	if err != nil {
		return nil, err
	}
	if item.Options, err = decodeOptions(options); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.FailedAtStatus = Status(failedAt)
	item.ProgressPercent = percent.Float64
	item.Attempts = int(attempts.Int64)
	item.CreatedAt, _ = parseTimeString(created)
	item.UpdatedAt, _ = parseTimeString(updated)
	if ts, err := parseTimeString(heartbeat); err == nil {
		item.LastHeartbeat = &ts
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// nullableString stores "" as NULL.
func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timestampLayout keeps a fixed-width fraction so stored timestamps compare
// correctly as strings.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

var errEmptyTimestamp = errors.New("empty timestamp")

// parseTimeString accepts stored RFC 3339 values and SQLite's CURRENT_TIMESTAMP form.
func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errEmptyTimestamp
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Parse(time.DateTime, value)
	}
	return t, nil
}

// makePlaceholders returns "?, ?, ?" for count parameters.
func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

func statusArgs(statuses []Status) []any {
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	return args
}

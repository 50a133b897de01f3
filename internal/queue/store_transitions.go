package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rollbackCase renders a SQL CASE expression mapping each processing status
// in column to its rollback status, along with its arguments.
func rollbackCase(column string, fallback string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(stageRollbackTransitions)*2)
	b.WriteString("CASE ")
	b.WriteString(column)
	for _, transition := range stageRollbackTransitions {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, transition.from, transition.to)
	}
	b.WriteString(" ELSE ")
	b.WriteString(fallback)
	b.WriteString(" END")
	return b.String(), args
}

func processingArgs() []any {
	args := make([]any, 0, len(stageRollbackTransitions))
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}
	return args
}

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseExpr, args := rollbackCase("status", "status")
	args = append(args, formatTime(time.Now()))
	args = append(args, processingArgs()...)
	res, err := s.exec(
		ctx,
		`UPDATE queue_items
         SET status = `+caseExpr+`,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(stageRollbackTransitions))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTime(time.Now())
	if _, err := s.exec(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items whose heartbeat expired before cutoff
// to the start of their current stage. When statuses are given only items in
// those processing statuses are reclaimed.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	filter := processingArgs()
	if len(statuses) > 0 {
		filter = filter[:0]
		for _, status := range statuses {
			if IsProcessingStatus(status) {
				filter = append(filter, status)
			}
		}
		if len(filter) == 0 {
			return 0, nil
		}
	}
	caseExpr, args := rollbackCase("status", "status")
	args = append(args, formatTime(time.Now()))
	args = append(args, filter...)
	args = append(args, formatTime(cutoff))
	res, err := s.exec(
		ctx,
		`UPDATE queue_items
        SET status = `+caseExpr+`,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+makePlaceholders(len(filter))+`)
          AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to the start of the stage they failed
// in (pending when unknown) and resets their attempt counter. Without ids
// every failed item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	caseExpr, args := rollbackCase("failed_at_status", "COALESCE(failed_at_status, '"+string(StatusPending)+"')")
	args = append(args, formatTime(time.Now()), StatusFailed)
	query := `UPDATE queue_items
        SET status = ` + caseExpr + `, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, failed_at_status = NULL,
            attempts = 0, updated_at = ?
        WHERE status = ?`
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

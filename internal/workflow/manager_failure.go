package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
)

// handleStageFailure either schedules a retry of the stage or fails the item.
// Attempts counts consecutive failures of the current stage.
func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stg step, item *queue.Item, stageErr error) {
	logger = logger.With(logging.String(logging.FieldComponent, "workflow-manager"))
	message := classifyStageFailure(stg.name, stageErr)

	next, retry := queue.FailureStatus(item, stageErr, m.maxAttempts)
	item.Attempts++

	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.Int("attempt", item.Attempts),
		logging.Int("max_attempts", m.maxAttempts),
		logging.String(logging.FieldErrorHint, services.ErrorHint(stageErr)),
		logging.Error(stageErr),
	}

	if retry {
		item.Status = next
		item.LastHeartbeat = nil
		item.ErrorMessage = message
		item.ProgressPercent = 0
		item.ProgressMessage = fmt.Sprintf("Retrying after error (attempt %d of %d)", item.Attempts, m.maxAttempts)
		attrs = append(attrs,
			logging.String("resolved_status", string(next)),
			logging.String(logging.FieldEventType, "stage_retry"),
		)
		logger.Warn("stage failed; retry scheduled", logging.Args(attrs...)...)
	} else {
		item.SetFailed(message)
		attrs = append(attrs,
			logging.String("resolved_status", string(queue.StatusFailed)),
			logging.String(logging.FieldAlert, "stage_failure"),
			logging.String(logging.FieldEventType, "stage_failure"),
		)
		logger.Error("stage failed", logging.Args(attrs...)...)
	}

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	if retry {
		return
	}
	m.notifyStageError(ctx, stg.name, item, stageErr)
	m.refreshQueueDepth(ctx)
	m.checkQueueCompletion(ctx)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr != nil {
		if message := strings.TrimSpace(stageErr.Error()); message != "" {
			return message
		}
	}
	if stageName != "" {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	return "workflow failed without error detail"
}

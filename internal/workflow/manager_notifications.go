package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/notifications"
	"lectern/internal/queue"
)

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, notification not sent", logging.String("event", string(event)))
			return
		}
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (m *Manager) notifyStageError(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	if stageErr == nil {
		return
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"error":   stageErr,
		"context": fmt.Sprintf("%s (item #%d)", stageName, item.ID),
	})
}

// notifyStageCompleted reports artifacts as they are produced. Skipped
// stages leave their artifact path empty and stay silent. Publishing sends
// its own notification.
func (m *Manager) notifyStageCompleted(ctx context.Context, stageName string, item *queue.Item) {
	payload := notifications.Payload{"title": item.Title}
	switch stageName {
	case StageTranscription:
		if item.TranscriptPath == "" {
			return
		}
		m.publish(ctx, notifications.EventTranscriptionCompleted, payload)
	case StageParaphrase:
		if item.ParaphrasePath == "" {
			return
		}
		payload["style"] = item.Options.Paraphrase.Style
		m.publish(ctx, notifications.EventParaphraseCompleted, payload)
	case StageSynthesis:
		if item.AudioPath == "" {
			return
		}
		m.publish(ctx, notifications.EventSynthesisCompleted, payload)
	}
}

func (m *Manager) onItemStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("queue stats unavailable for start notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "start notification will not be sent"),
			)
		}
		return
	}
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	m.publish(ctx, notifications.EventQueueStarted, notifications.Payload{"count": countActiveItems(stats)})
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("queue stats unavailable for completion notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "completion notification will not be sent"),
			)
		}
		return
	}
	if countActiveItems(stats) > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	var duration time.Duration
	if !start.IsZero() {
		duration = time.Since(start)
	}
	m.publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": stats[queue.StatusCompleted],
		"failed":    stats[queue.StatusFailed],
		"duration":  duration,
	})
}

func (m *Manager) refreshQueueDepth(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return
	}
	counts := make(map[string]int, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}
	statuses := queue.AllStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	metrics.SetQueueDepth(counts, names)
}

// countActiveItems counts items that still have work ahead of them.
func countActiveItems(stats map[queue.Status]int) int {
	total := 0
	for status, count := range stats {
		if status == queue.StatusCompleted || status == queue.StatusFailed {
			continue
		}
		total += count
	}
	return total
}

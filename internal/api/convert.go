package api

import (
	"maps"
	"slices"
	"time"

	"lectern/internal/deps"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/stage"
	"lectern/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		Title:          item.Title,
		SourcePath:     item.SourcePath,
		Status:         string(item.Status),
		Stage:          item.Status.StageKey(),
		ProcessingLane: string(queue.LaneForItem(item)),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage:   item.ErrorMessage,
		FailedAtStatus: string(item.FailedAtStatus),
		Attempts:       item.Attempts,
		Options:        item.Options,
		TranscriptPath: item.TranscriptPath,
		ParaphrasePath: item.ParaphrasePath,
		AudioPath:      item.AudioPath,
		BundlePath:     item.BundlePath,
		OutputDir:      item.OutputDir,
		CreatedAt:      FormatTime(item.CreatedAt),
		UpdatedAt:      FormatTime(item.UpdatedAt),
	}
	if dto.Progress.Stage == "" && item.Status == queue.StatusPending {
		dto.Progress.Stage = "Queued"
	}
	return dto
}

// FromQueueItems converts queue records, dropping nil entries.
func FromQueueItems(items []*queue.Item) []QueueItem {
	return convertAll(items, func(item *queue.Item) (QueueItem, bool) {
		return FromQueueItem(item), item != nil
	})
}

// convertAll maps in through fn, keeping the results fn accepts. Empty input
// yields nil.
func convertAll[T, U any](in []T, fn func(T) (U, bool)) []U {
	if len(in) == 0 {
		return nil
	}
	out := make([]U, 0, len(in))
	for _, v := range in {
		if converted, ok := fn(v); ok {
			out = append(out, converted)
		}
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
		LastError:   summary.LastError,
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice flattens the health map, sorted by stage name.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	out := make([]StageHealth, 0, len(health))
	for _, name := range slices.Sorted(maps.Keys(health)) {
		out = append(out, StageHealth{Name: name, Ready: health[name].Ready, Detail: health[name].Detail})
	}
	return out
}

// FromDependencies converts dependency checks into API payloads.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	return convertAll(statuses, func(dep deps.Status) (DependencyStatus, bool) {
		return DependencyStatus(dep), true
	})
}

// FromLogEvents converts stream hub events into API payloads.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	return convertAll(events, func(evt logging.LogEvent) (LogEvent, bool) {
		return LogEvent(evt), true
	})
}

// FormatTime renders t for transport, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusParaphrasing Status = "paraphrasing"
	StatusParaphrased  Status = "paraphrased"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusPublishing   Status = "publishing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusTranscribed,
	StatusParaphrasing,
	StatusParaphrased,
	StatusSynthesizing,
	StatusSynthesized,
	StatusPublishing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusParaphrasing: {},
	StatusSynthesizing: {},
	StatusPublishing:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusTranscribing, to: StatusPending},
	{from: StatusParaphrasing, to: StatusTranscribed},
	{from: StatusSynthesizing, to: StatusParaphrased},
	{from: StatusPublishing, to: StatusSynthesized},
}

// RollbackStatus returns the status a processing item returns to when its
// stage is abandoned. Non-processing statuses are returned unchanged.
func RollbackStatus(status Status) Status {
	for _, transition := range stageRollbackTransitions {
		if transition.from == status {
			return transition.to
		}
	}
	return status
}

// DatabaseHealth is the result of CheckHealth. It is also sent as-is over
// IPC and printed by `queue db-health --json`.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// HealthSummary buckets queue rows into the coarse states shown by
// `queue health`.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// Item represents a lecture job persisted in SQLite.
type Item struct {
	ID              int64
	SourcePath      string
	Title           string
	Status          Status
	FailedAtStatus  Status
	ErrorMessage    string
	Options         JobOptions
	TranscriptPath  string
	ParaphrasePath  string
	AudioPath       string
	BundlePath      string
	OutputDir       string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	Attempts        int
	LastHeartbeat   *time.Time
	RequestID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage and clears the
// previous error.
func (i *Item) InitProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed, remembering the stage it failed in.
func (i *Item) SetFailed(message string) {
	if i.Status != StatusFailed {
		i.FailedAtStatus = i.Status
	}
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "queued"
	case StatusCompleted:
		return "done"
	default:
		if _, ok := statusSet[s]; ok {
			return string(s)
		}
		return ""
	}
}

// ProcessingLane partitions the workflow into the speech lane and the
// text/audio lane so a long transcription does not block publishing.
type ProcessingLane string

const (
	LaneTranscription ProcessingLane = "transcription"
	LaneText          ProcessingLane = "text"
)

// LaneForStatus maps a status to the lane that advances it.
func LaneForStatus(status Status) ProcessingLane {
	switch status {
	case StatusPending, StatusTranscribing:
		return LaneTranscription
	default:
		return LaneText
	}
}

// LaneForItem maps a queue item to its processing lane for observability purposes.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneTranscription
	}
	if item.Status == StatusFailed && item.FailedAtStatus != "" {
		return LaneForStatus(item.FailedAtStatus)
	}
	return LaneForStatus(item.Status)
}

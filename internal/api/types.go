package api

import (
	"time"

	"lectern/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	SourcePath     string           `json:"sourcePath"`
	Status         string           `json:"status"`
	Stage          string           `json:"stage"`
	ProcessingLane string           `json:"processingLane"`
	Progress       QueueProgress    `json:"progress"`
	ErrorMessage   string           `json:"errorMessage,omitempty"`
	FailedAtStatus string           `json:"failedAtStatus,omitempty"`
	Attempts       int              `json:"attempts"`
	Options        queue.JobOptions `json:"options"`
	TranscriptPath string           `json:"transcriptPath,omitempty"`
	ParaphrasePath string           `json:"paraphrasePath,omitempty"`
	AudioPath      string           `json:"audioPath,omitempty"`
	BundlePath     string           `json:"bundlePath,omitempty"`
	OutputDir      string           `json:"outputDir,omitempty"`
	ItemLogPath    string           `json:"itemLogPath,omitempty"`
	CreatedAt      string           `json:"createdAt,omitempty"`
	UpdatedAt      string           `json:"updatedAt,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	InboxDir     string             `json:"inboxDir,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// TranscriptResponse carries the text artifacts of a queue item.
type TranscriptResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
	Paraphrase string `json:"paraphrase,omitempty"`
}

// LogEvent is a structured log line exposed by the log stream endpoints.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ItemID        int64             `json:"itemId,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse is a page of log events plus the cursor for the next
// request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the JSON body of failed HTTP requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusLine is one labeled readiness row shown by `lectern status`.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency availability.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

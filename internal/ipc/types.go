package ipc

import (
	"lectern/internal/api"
	"lectern/internal/daemon"
	"lectern/internal/queue"
)

// Shared DTOs. IPC replies reuse the HTTP API shapes so the CLI renders both
// sources with the same code.
type (
	QueueItem        = api.QueueItem
	StageHealth      = api.StageHealth
	DependencyStatus = api.DependencyStatus
)

// Daemon lifecycle.
type (
	StartRequest  struct{}
	StopRequest   struct{}
	StatusRequest struct{}

	StartResponse struct {
		Started bool   `json:"started"`
		Message string `json:"message"`
	}

	StopResponse struct {
		Stopped bool `json:"stopped"`
	}

	// StatusResponse combines daemon, workflow and dependency state.
	StatusResponse struct {
		Running      bool               `json:"running"`
		PID          int                `json:"pid"`
		QueueStats   map[string]int     `json:"queue_stats"`
		LastError    string             `json:"last_error"`
		LastItem     *QueueItem         `json:"last_item"`
		LockPath     string             `json:"lock_path"`
		QueueDBPath  string             `json:"queue_db_path"`
		InboxDir     string             `json:"inbox_dir"`
		StageHealth  []StageHealth      `json:"stage_health"`
		Dependencies []DependencyStatus `json:"dependencies"`
	}
)

// Enqueueing and reading the queue.
type (
	AddFileRequest struct {
		Path      string              `json:"path"`
		Title     string              `json:"title"`
		Overrides daemon.JobOverrides `json:"overrides"`
	}

	// AddFileResponse sets Existing when the path was already queued and
	// Item is that earlier entry.
	AddFileResponse struct {
		Item     QueueItem `json:"item"`
		Existing bool      `json:"existing"`
	}

	// QueueListRequest with no statuses lists every item.
	QueueListRequest struct {
		Statuses []string `json:"statuses"`
	}

	QueueListResponse struct {
		Items []QueueItem `json:"items"`
	}

	QueueDescribeRequest struct {
		ID int64 `json:"id"`
	}

	QueueDescribeResponse struct {
		Found bool      `json:"found"`
		Item  QueueItem `json:"item"`
	}
)

// Queue mutations.
type (
	QueueClearRequest          struct{}
	QueueClearCompletedRequest struct{}
	QueueClearFailedRequest    struct{}
	ResetStuckRequest          struct{}

	QueueRemoveRequest struct {
		IDs []int64 `json:"ids"`
	}

	// QueueRetryRequest with no IDs retries every failed item.
	QueueRetryRequest struct {
		IDs []int64 `json:"ids"`
	}

	QueueClearResponse struct {
		Removed int64 `json:"removed"`
	}

	QueueRemoveResponse = QueueClearResponse

	QueueUpdateResponse struct {
		Updated int64 `json:"updated"`
	}
)

// Diagnostics.
type (
	QueueHealthRequest      struct{}
	DatabaseHealthRequest   struct{}
	TestNotificationRequest struct{}

	QueueHealthResponse    = queue.HealthSummary
	DatabaseHealthResponse = queue.DatabaseHealth

	TestNotificationResponse struct {
		Sent    bool   `json:"sent"`
		Message string `json:"message"`
	}
)

// LogTailRequest pages through the daemon's log stream. Since is the cursor
// from the previous reply. Tail with a zero Since returns the newest Limit
// events instead of the oldest. Follow blocks up to WaitMillis for new ones.
type LogTailRequest struct {
	Since      uint64 `json:"since"`
	Tail       bool   `json:"tail"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	ItemID     int64  `json:"item_id"`
}

type LogTailResponse struct {
	Events []api.LogEvent `json:"events"`
	Next   uint64         `json:"next"`
}

package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/preflight"
	"lectern/internal/queue"
)

const minPollInterval = 50 * time.Millisecond

// PreflightFunc runs readiness checks when the manager starts.
type PreflightFunc func(context.Context) []preflight.Result

// Manager coordinates queue processing using registered stage functions.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	maxAttempts   int
	notifier      notifications.Service
	preflight     PreflightFunc

	heartbeat *HeartbeatMonitor
	itemLogs  *ItemLogger

	lanes []*lane

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	queueActive bool
	queueStart  time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithPreflight runs checks on Start and records failures as the last error.
func WithPreflight(fn PreflightFunc) ManagerOption {
	return func(m *Manager) {
		m.preflight = fn
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifications.NewService(cfg), nil)
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifier, nil)
}

// NewManagerWithOptions constructs a workflow manager with full configuration.
func NewManagerWithOptions(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, logHub *logging.StreamHub, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll < minPollInterval {
		poll = minPollInterval
	}
	maxAttempts := cfg.Workflow.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logger,
		notifier:      notifier,
		pollInterval:  poll,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		maxAttempts:   maxAttempts,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		itemLogs: NewItemLogger(cfg, logHub),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

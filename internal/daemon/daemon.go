package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/notifications"
	"lectern/internal/preflight"
	"lectern/internal/queue"
	"lectern/internal/textutil"
	"lectern/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	logHub   *logging.StreamHub
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	apiSrv *apiServer
	inbox  *inboxWatcher

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	depsMu       sync.Mutex
	dependencies []deps.Status
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	InboxDir     string
	Dependencies []deps.Status
}

// AddFileRequest describes a recording submitted for processing.
type AddFileRequest struct {
	Path      string
	Title     string
	Overrides JobOverrides
	// Origin labels the submission in metrics: cli, inbox or recording.
	Origin string
	// SkipKnown returns any existing record for the path, including finished
	// ones, instead of queueing the file again.
	SkipKnown bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, logHub *logging.StreamHub, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		workflow: wf,
		logHub:   logHub,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = apiSrv
	if dir := strings.TrimSpace(cfg.Paths.InboxDir); dir != "" {
		d.inbox = newInboxWatcher(dir, time.Duration(cfg.Workflow.InboxSettleSeconds)*time.Second, d.AddFile, logger)
	}
	return d, nil
}

// Start acquires the daemon lock and launches the workflow manager, the inbox
// watcher and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.sweepStaging(runCtx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.apiSrv.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}
	if d.inbox != nil {
		if err := d.inbox.start(runCtx, &d.wg); err != nil {
			d.logger.Warn("inbox watcher unavailable",
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_watch_failed"),
				logging.String(logging.FieldImpact, "files dropped into the inbox are not queued automatically"),
				logging.String(logging.FieldErrorHint, "check paths.inbox_dir exists and is readable"))
		}
	}

	d.cancel = cancel
	d.running.Store(true)
	d.refreshDependencies(runCtx)
	d.logger.Info("lectern daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiSrv.stop()
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon. The store is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether the workflow is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// AddFile validates a recording and enqueues it with the configured defaults
// adjusted by the request overrides. A file that is already queued (and not
// failed or completed) is returned as is.
func (d *Daemon) AddFile(ctx context.Context, req AddFileRequest) (*queue.Item, bool, error) {
	return Enqueue(ctx, d.cfg, d.store, d.logger, req)
}

// Enqueue performs AddFile against a store directly. The CLI uses it when no
// daemon is running.
func Enqueue(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, req AddFileRequest) (*queue.Item, bool, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	trimmed := strings.TrimSpace(req.Path)
	if trimmed == "" {
		return nil, false, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, false, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, false, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("source path %q is a directory", absPath)
	}
	if !IsMediaFile(absPath) {
		return nil, false, fmt.Errorf("unsupported file extension %q (supported: %s)", filepath.Ext(absPath), strings.Join(mediaExtensions, ", "))
	}

	existing, err := store.FindBySourcePath(ctx, absPath)
	if err != nil {
		return nil, false, fmt.Errorf("lookup queued file: %w", err)
	}
	if existing != nil && (req.SkipKnown || (existing.Status != queue.StatusCompleted && existing.Status != queue.StatusFailed)) {
		return existing, true, nil
	}

	opts, err := req.Overrides.Apply(queue.DefaultJobOptions(cfg))
	if err != nil {
		return nil, false, fmt.Errorf("invalid job options: %w", err)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = textutil.DeriveTitle(absPath)
	}
	item, err := store.NewFile(ctx, absPath, title, opts)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue file: %w", err)
	}
	origin := req.Origin
	if origin == "" {
		origin = "cli"
	}
	metrics.RecordEnqueued(origin)
	logger.Info("file queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldEventType, "item_enqueued"),
		logging.String("source", absPath),
		logging.String("origin", origin),
		logging.Bool("paraphrase", opts.Paraphrase.Enabled),
		logging.Bool("tts", opts.TTS.Enabled))
	return item, false, nil
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	return d.store.List(ctx, statuses...)
}

// GetQueueItem returns a single item or nil when it does not exist.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// RemoveItems deletes the given items and reports how many existed.
func (d *Daemon) RemoveItems(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := d.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// ResetStuck transitions in-flight items back to the start of their stage.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed re-queues failed items (optionally a subset) at the stage they failed in.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := notifications.TestNotification(ctx, d.notifier); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogStream exposes the in-memory log hub, which may be nil.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// ItemLogPath returns the per-item log file location.
func (d *Daemon) ItemLogPath(id int64) string {
	return d.workflow.ItemLogPath(id)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		InboxDir:     d.cfg.Paths.InboxDir,
	}
	d.depsMu.Lock()
	status.Dependencies = append([]deps.Status(nil), d.dependencies...)
	d.depsMu.Unlock()
	return status
}

func (d *Daemon) refreshDependencies(ctx context.Context) {
	statuses := preflight.CheckSystemDeps(ctx, d.cfg)
	d.depsMu.Lock()
	d.dependencies = statuses
	d.depsMu.Unlock()
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		d.logger.Warn("required dependency missing",
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldEventType, "dependency_missing"),
			logging.String(logging.FieldImpact, "long recordings cannot be chunked"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set its path"))
	}
}

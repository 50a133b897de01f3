package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lectern/internal/logging"
	"lectern/internal/queue"
)

const defaultInboxSettle = 5 * time.Second

type enqueueFunc func(ctx context.Context, req AddFileRequest) (*queue.Item, bool, error)

// inboxWatcher queues recordings dropped into the inbox directory once their
// size has stopped changing for the settle window.
type inboxWatcher struct {
	dir     string
	settle  time.Duration
	enqueue enqueueFunc
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingFile
}

type pendingFile struct {
	size    int64
	changed time.Time
}

func newInboxWatcher(dir string, settle time.Duration, enqueue enqueueFunc, logger *slog.Logger) *inboxWatcher {
	if settle <= 0 {
		settle = defaultInboxSettle
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &inboxWatcher{
		dir:     dir,
		settle:  settle,
		enqueue: enqueue,
		logger:  logger.With(logging.String(logging.FieldComponent, "inbox")),
		pending: make(map[string]pendingFile),
	}
}

func (w *inboxWatcher) start(ctx context.Context, wg *sync.WaitGroup) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}
	w.scanExisting()
	w.logger.Info("watching inbox",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle),
		logging.String(logging.FieldEventType, "inbox_watch_started"))

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer watcher.Close()
		w.run(ctx, watcher)
	}()
	return nil
}

func (w *inboxWatcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.track(event.Name, time.Now())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_watch_error"))
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *inboxWatcher) pollInterval() time.Duration {
	interval := w.settle / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

func (w *inboxWatcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("inbox scan failed", logging.Error(err))
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.track(filepath.Join(w.dir, entry.Name()), now)
	}
}

func (w *inboxWatcher) track(path string, now time.Time) {
	if strings.HasPrefix(filepath.Base(path), ".") || !IsMediaFile(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	w.mu.Lock()
	w.pending[path] = pendingFile{size: info.Size(), changed: now}
	w.mu.Unlock()
}

// ready returns the tracked files whose size has not changed for the settle window.
func (w *inboxWatcher) ready(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, p := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != p.size {
			w.pending[path] = pendingFile{size: info.Size(), changed: now}
			continue
		}
		if now.Sub(p.changed) < w.settle {
			continue
		}
		delete(w.pending, path)
		out = append(out, path)
	}
	return out
}

func (w *inboxWatcher) flush(ctx context.Context, now time.Time) {
	for _, path := range w.ready(now) {
		item, existing, err := w.enqueue(ctx, AddFileRequest{Path: path, Origin: "inbox", SkipKnown: true})
		if err != nil {
			w.logger.Warn("inbox file not queued",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_enqueue_failed"),
				logging.String(logging.FieldErrorHint, "queue the file manually with lectern add-file"))
			continue
		}
		if existing {
			w.logger.Debug("inbox file already known",
				logging.String("path", path),
				logging.Int64(logging.FieldItemID, item.ID))
			continue
		}
		w.logger.Info("inbox file queued",
			logging.String("path", path),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "inbox_enqueued"))
	}
}

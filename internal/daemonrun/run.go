package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/deps"
	"lectern/internal/ipc"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/preflight"
	"lectern/internal/queue"
	"lectern/internal/workflow"
)

const (
	logStreamCapacity = 4096
	currentLogName    = "lectern.log"
)

// Options are the command-line overrides for a daemon process.
type Options struct {
	LogLevel    string
	Development bool
}

// Run hosts the daemon until SIGINT, SIGTERM or cancellation of parent. It
// owns the PID file, the run log and the IPC socket for its lifetime.
func Run(parent context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.ValidateCredentials(false, false); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := logging.NewStreamHub(logStreamCapacity)
	logger, logPath, err := openRunLog(cfg, opts, hub)
	if err != nil {
		return err
	}
	logDependencySnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithOptions(cfg, store, logger, notifier, hub,
		workflow.WithPreflight(func(ctx context.Context) []preflight.Result { return preflight.RunAll(ctx, cfg) }))
	manager.ConfigureStages(BuildStages(cfg, store, logger, notifier))

	d, err := daemon.New(cfg, store, logger, manager, hub, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	server, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Close()
	server.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}
	logger.Info("lectern daemon ready",
		logging.String("log_file", logPath),
		logging.String(logging.FieldEventType, "daemon_ready"))

	<-ctx.Done()
	logger.Info("lectern daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// openRunLog creates a per-run log file next to a stable lectern.log pointer
// and prunes run and item logs past the retention window.
func openRunLog(cfg *config.Config, opts Options, hub *logging.StreamHub) (*slog.Logger, string, error) {
	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, "lectern-"+stamp+".log")

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
		Stream:      hub,
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("session_id", uuid.NewString()))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		logger.Warn("log pointer not updated",
			logging.Error(err),
			logging.String(logging.FieldEventType, "log_pointer_failed"),
			logging.String(logging.FieldImpact, currentLogName+" may point at an older run"))
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "lectern-*.log", Keep: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, workflow.ItemLogDirName), Pattern: "*.log"},
	)
	return logger, logPath, nil
}

// ensureCurrentLogPointer swaps logDir/lectern.log to point at target. A hard
// link is the fallback on filesystems without symlinks.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, currentLogName)
	if err := renameio.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Remove(current); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return renameio.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	present := func(s string) bool { return strings.TrimSpace(s) != "" }
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("deepgram_key_present", present(cfg.Deepgram.APIKey)),
		logging.String("deepgram_model", cfg.Deepgram.Model),
		logging.Bool("paraphrase_enabled", cfg.Paraphrase.Enabled),
		logging.Bool("paraphrase_key_present", present(cfg.Paraphrase.APIKey)),
		logging.Bool("tts_enabled", cfg.TTS.Enabled),
		logging.Bool("tts_url_present", present(cfg.TTS.URL)),
		logging.String("inbox_dir", cfg.Paths.InboxDir),
	}
	for _, st := range deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary())) {
		key := strings.ToLower(st.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", st.Available),
			logging.String(key+"_binary", st.Command))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

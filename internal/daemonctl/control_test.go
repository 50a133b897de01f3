package daemonctl

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/queue"
	"lectern/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name     string
		deps     []ipc.DependencyStatus
		severity string
		detail   string
	}{
		{name: "empty", deps: nil, severity: "info", detail: "No dependency checks configured"},
		{
			name:     "all available",
			deps:     []ipc.DependencyStatus{{Name: "ffmpeg", Available: true}, {Name: "ffprobe", Available: true}},
			severity: "ok",
			detail:   "2/2 available",
		},
		{
			name:     "optional missing",
			deps:     []ipc.DependencyStatus{{Name: "ffmpeg", Available: true}, {Name: "libmp3lame", Optional: true}},
			severity: "warn",
			detail:   "1/2 available (missing: 0 required, 1 optional)",
		},
		{
			name:     "required missing",
			deps:     []ipc.DependencyStatus{{Name: "ffmpeg"}, {Name: "libmp3lame", Optional: true}},
			severity: "error",
			detail:   "0/2 available (missing: 1 required, 1 optional)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := BuildDependencySummary(tt.deps)
			if summary.Severity != tt.severity || summary.Detail != tt.detail {
				t.Fatalf("summary = %+v, want severity %q detail %q", summary, tt.severity, tt.detail)
			}
		})
	}
}

func TestDependencySeverity(t *testing.T) {
	if got := DependencySeverity(ipc.DependencyStatus{Available: true}); got != "ok" {
		t.Fatalf("available = %q", got)
	}
	if got := DependencySeverity(ipc.DependencyStatus{Optional: true}); got != "warn" {
		t.Fatalf("optional = %q", got)
	}
	if got := DependencySeverity(ipc.DependencyStatus{}); got != "error" {
		t.Fatalf("required = %q", got)
	}
}

func TestBuildSystemChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paraphrase.APIKey = ""
	cfg.TTS.Enabled = false
	cfg.Notifications.NtfyTopic = ""

	lines := BuildSystemChecks(cfg, false)
	byLabel := make(map[string]api.StatusLine, len(lines))
	for _, line := range lines {
		byLabel[line.Label] = line
	}
	if byLabel["Lectern"].Severity != "warn" {
		t.Fatalf("expected daemon warn line, got %+v", byLabel["Lectern"])
	}
	if byLabel["Deepgram"].Severity != "ok" {
		t.Fatalf("expected deepgram ok, got %+v", byLabel["Deepgram"])
	}
	if cfg.Paraphrase.Enabled && byLabel["Paraphrase"].Severity != "warn" {
		t.Fatalf("expected paraphrase warn without key, got %+v", byLabel["Paraphrase"])
	}
	if byLabel["Speech synthesis"].Detail != "Disabled" {
		t.Fatalf("expected synthesis disabled, got %+v", byLabel["Speech synthesis"])
	}
	if byLabel["Notifications"].Severity != "warn" {
		t.Fatalf("expected notifications warn, got %+v", byLabel["Notifications"])
	}

	running := BuildSystemChecks(cfg, true)
	if running[0].Label != "Lectern" || running[0].Severity != "ok" {
		t.Fatalf("expected running line first, got %+v", running[0])
	}
}

func TestBuildLibraryPathChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Paths.RecordingDir = filepath.Join(t.TempDir(), "missing")

	lines := BuildLibraryPathChecks(cfg)
	byLabel := make(map[string]api.StatusLine, len(lines))
	for _, line := range lines {
		byLabel[line.Label] = line
	}
	if byLabel["Staging"].Severity != "ok" {
		t.Fatalf("expected staging ok, got %+v", byLabel["Staging"])
	}
	if byLabel["Recordings"].Severity != "error" {
		t.Fatalf("expected missing recordings dir error, got %+v", byLabel["Recordings"])
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewFile(t, store, "/inbox/a.mp3", queue.JobOptions{})

	snapshot, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Running {
		t.Fatal("expected offline snapshot")
	}
	if snapshot.QueueStats["pending"] != 1 {
		t.Fatalf("expected pending count from database, got %v", snapshot.QueueStats)
	}
	if len(snapshot.Dependencies) == 0 {
		t.Fatal("expected local dependency checks")
	}
}

func TestReadPIDAndForceKillGuards(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "lecternd.pid")
	if _, err := ReadPID(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if err := os.WriteFile(pidPath, []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := ReadPID(pidPath); err == nil {
		t.Fatal("expected parse error")
	}
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	pid, err := ReadPID(pidPath)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}
	if _, err := ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
	if _, err := ForceKillProcess(filepath.Join(dir, "absent.pid"), "", 0); err == nil {
		t.Fatal("expected error without any pid")
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := StopAndTerminate(cfg, 0); err != ErrDaemonNotRunning {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

package recording

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"lectern/internal/logging"
)

func TestRecorderStopsOnQuit(t *testing.T) {
	var gotArgs []string
	factory := func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		gotArgs = args
		// Reads until stdin closes, then writes the output file like ffmpeg.
		return exec.CommandContext(ctx, "sh", "-c", `cat >/dev/null; printf mp4 > "$1"`, "sh", args[len(args)-1])
	}
	rec := NewRecorder("ffmpeg", logging.NewNop(), WithCommandFactory(factory))
	dir := t.TempDir()

	path, err := rec.Start(context.Background(), Session{Title: "test", Source: "none", OutputDir: dir})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("unexpected output path %q", path)
	}
	if gotArgs[len(gotArgs)-1] != path {
		t.Fatalf("ffmpeg output arg mismatch: %v", gotArgs)
	}
	if !rec.Running() {
		t.Fatal("expected recorder to be running")
	}
	if _, err := rec.Start(context.Background(), Session{Source: "none", OutputDir: dir}); err == nil {
		t.Fatal("expected second Start to fail")
	}

	result, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.Path != path || result.Size != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if rec.Running() {
		t.Fatal("recorder still running after Stop")
	}
	if _, err := rec.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestRecorderKillsUnresponsiveProcess(t *testing.T) {
	factory := func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "exec sleep 30")
	}
	rec := NewRecorder("", logging.NewNop(), WithCommandFactory(factory), WithStopTimeout(100*time.Millisecond))
	if _, err := rec.Start(context.Background(), Session{Source: "none", OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := rec.Stop(); err == nil || !strings.Contains(err.Error(), "killed") {
		t.Fatalf("expected kill error, got %v", err)
	}
}

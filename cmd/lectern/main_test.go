package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{
		"start", "stop", "restart", "status", "daemon", "add-file", "queue", "show",
		"logs", "test-notify", "config", "transcribe", "paraphrase", "synthesize",
		"live", "record", "process", "staging", "voices", "styles", "models",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Fatalf("command %q not registered", name)
		}
	}
	queueCmd, _, _ := root.Find([]string{"queue"})
	for _, name := range []string{"list", "show", "clear", "retry", "remove", "health", "reset", "db-health"} {
		if cmd, _, err := queueCmd.Find([]string{name}); err != nil || cmd == queueCmd {
			t.Fatalf("queue subcommand %q not registered", name)
		}
	}
}

func TestQueueLifecycleWithoutDaemon(t *testing.T) {
	env := newCLIEnv(t, "")
	recording := env.writeRecording(t, "week1.mp3")

	out := env.mustRun(t, "add-file", "--title", "Intro Lecture", "--paraphrase=false", recording)
	if !strings.Contains(out, "Queued #1 Intro Lecture") {
		t.Fatalf("unexpected add-file output: %q", out)
	}
	out = env.mustRun(t, "add-file", recording)
	if !strings.Contains(out, "Already queued: #1") {
		t.Fatalf("expected duplicate to be reported, got %q", out)
	}

	out = env.mustRun(t, "queue", "list")
	if !strings.Contains(out, "Intro Lecture") || !strings.Contains(out, "Pending") {
		t.Fatalf("queue list missing item: %q", out)
	}
	out = env.mustRun(t, "queue", "list", "--status", "failed")
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("expected empty failed list, got %q", out)
	}
	if _, _, err := env.run(t, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}

	out = env.mustRun(t, "queue", "show", "1")
	if !strings.Contains(out, "Paraphrase:  off") || !strings.Contains(out, "week1.mp3") {
		t.Fatalf("unexpected queue show output: %q", out)
	}

	out = env.mustRun(t, "queue", "retry", "1", "7")
	if !strings.Contains(out, "Item 1: not failed (status Pending)") || !strings.Contains(out, "Item 7: not found") {
		t.Fatalf("unexpected retry output: %q", out)
	}

	if _, _, err := env.run(t, "show", "1"); err == nil || !strings.Contains(err.Error(), "no transcript yet") {
		t.Fatalf("expected missing transcript error, got %v", err)
	}

	out = env.mustRun(t, "queue", "health")
	if !strings.Contains(out, "Total: 1") || !strings.Contains(out, "Pending: 1") {
		t.Fatalf("unexpected health output: %q", out)
	}

	out = env.mustRun(t, "queue", "remove", "1", "2")
	if !strings.Contains(out, "Item 1: removed") || !strings.Contains(out, "Item 2: not found") {
		t.Fatalf("unexpected remove output: %q", out)
	}
	out = env.mustRun(t, "queue", "db-health")
	if !strings.Contains(out, "Integrity check: yes") || !strings.Contains(out, "Total items: 0") {
		t.Fatalf("unexpected db-health output: %q", out)
	}
}

func TestAddFileRejectsUnsupportedFiles(t *testing.T) {
	env := newCLIEnv(t, "")
	notes := filepath.Join(env.base, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	if _, _, err := env.run(t, "add-file", notes); err == nil || !strings.Contains(err.Error(), "unsupported file extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
	if _, _, err := env.run(t, "add-file", "--title", "x", notes, notes); err == nil {
		t.Fatal("expected --title with several files to fail")
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := newCLIEnv(t, "")
	out := env.mustRun(t, "status")
	for _, want := range []string{"== System Status ==", "Not running", "== Queue Status ==", "Queue is empty"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	env := newCLIEnv(t, "")
	out := env.mustRun(t, "stop")
	if !strings.Contains(out, "Daemon is not running") {
		t.Fatalf("unexpected stop output: %q", out)
	}
}

func TestCatalogCommandsSkipConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "broken.toml"), "styles"})
	var out strings.Builder
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("styles: %v", err)
	}
	if !strings.Contains(out.String(), "academic") || !strings.Contains(out.String(), "Formality:") {
		t.Fatalf("unexpected styles output: %q", out.String())
	}
}

func TestProcessRejectsUnsupportedFile(t *testing.T) {
	env := newCLIEnv(t, "[deepgram]\napi_key = \"dg\"\n")
	notes := filepath.Join(env.base, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	_, _, err := env.run(t, "process", notes)
	if err == nil || !strings.Contains(err.Error(), "unsupported file extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestStagingCleanRemovesOrphans(t *testing.T) {
	env := newCLIEnv(t, "")
	orphan := filepath.Join(env.base, "staging", "queue-42")
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	out := env.mustRun(t, "staging", "list")
	if !strings.Contains(out, "queue-42") || !strings.Contains(out, "Total: 1 directories") {
		t.Fatalf("unexpected staging list output: %q", out)
	}
	out = env.mustRun(t, "staging", "clean")
	if !strings.Contains(out, "Removed "+orphan+" (orphaned)") {
		t.Fatalf("unexpected staging clean output: %q", out)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan still present: %v", err)
	}
}

func TestLogsReadsItemLogWithoutDaemon(t *testing.T) {
	env := newCLIEnv(t, "")
	itemLog := filepath.Join(env.base, "logs", "items", "item-3.log")
	if err := os.MkdirAll(filepath.Dir(itemLog), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	record := `{"ts":"2026-03-01T09:30:00Z","level":"info","msg":"stage completed","component":"workflow","item_id":3}` + "\n"
	if err := os.WriteFile(itemLog, []byte(record), 0o644); err != nil {
		t.Fatalf("write item log: %v", err)
	}
	out, stderr, err := env.run(t, "logs", "--item", "3")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "INFO  [workflow] #3 stage completed") {
		t.Fatalf("unexpected logs output: %q", out)
	}
	if !strings.Contains(stderr, "Daemon not running") {
		t.Fatalf("expected offline note, got %q", stderr)
	}

	out = env.mustRun(t, "logs")
	if !strings.Contains(out, "No log entries available") {
		t.Fatalf("expected empty daemon log, got %q", out)
	}
}

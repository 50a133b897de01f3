package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliEnv struct {
	base       string
	configPath string
}

// newCLIEnv writes a config whose directories live under a temp dir. No
// daemon runs, so queue commands use the database directly.
func newCLIEnv(t *testing.T, extra string) *cliEnv {
	t.Helper()
	base := t.TempDir()
	var b strings.Builder
	b.WriteString("[paths]\n")
	for _, kv := range [][2]string{
		{"staging_dir", "staging"},
		{"library_dir", "library"},
		{"log_dir", "logs"},
		{"recording_dir", "recordings"},
	} {
		fmt.Fprintf(&b, "%s = %q\n", kv[0], filepath.Join(base, kv[1]))
	}
	b.WriteString(extra)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{base: base, configPath: path}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("lectern %s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func (e *cliEnv) writeRecording(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.base, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x1}, 2048), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption adjusts a test configuration after defaults are applied.
type ConfigOption func(*testEnv)

type testEnv struct {
	t    testing.TB
	root string
	cfg  *config.Config
}

// NewConfig returns config.Default with every path moved under a fresh temp
// directory, a dummy Deepgram key and the API bound to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Deepgram.APIKey = "test-deepgram"
	cfg.Paths.APIBind = "127.0.0.1:0"
	for dir, field := range map[string]*string{
		"staging":    &cfg.Paths.StagingDir,
		"library":    &cfg.Paths.LibraryDir,
		"logs":       &cfg.Paths.LogDir,
		"inbox":      &cfg.Paths.InboxDir,
		"recordings": &cfg.Paths.RecordingDir,
	} {
		*field = filepath.Join(root, dir)
	}
	env := &testEnv{t: t, root: root, cfg: &cfg}
	for _, opt := range opts {
		opt(env)
	}
	return env.cfg
}

// WithParaphrase turns paraphrasing on against baseURL.
func WithParaphrase(apiKey, baseURL string) ConfigOption {
	return func(e *testEnv) {
		p := &e.cfg.Paraphrase
		p.Enabled, p.APIKey, p.BaseURL = true, apiKey, baseURL
	}
}

// WithTTS turns speech synthesis on against url.
func WithTTS(url, username, password string) ConfigOption {
	return func(e *testEnv) {
		s := &e.cfg.TTS
		s.Enabled, s.URL, s.Username, s.Password = true, url, username, password
	}
}

// WithStubbedBinaries puts no-op executables named names (ffmpeg and ffprobe
// by default) first on PATH for the duration of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(e *testEnv) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		bin := filepath.Join(e.root, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			e.t.Fatalf("mkdir %s: %v", bin, err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				e.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		e.t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp root NewConfig placed the paths under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}

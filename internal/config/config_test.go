package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lectern/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "lectern", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "lectures") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Deepgram.APIKey != "dg-key" {
		t.Fatalf("expected Deepgram key from env, got %q", cfg.Deepgram.APIKey)
	}
	if cfg.Paraphrase.APIKey != "oa-key" {
		t.Fatalf("expected OpenAI key from env, got %q", cfg.Paraphrase.APIKey)
	}
	if cfg.Deepgram.Model != "nova-2" || cfg.Deepgram.Language != "cs" {
		t.Fatalf("unexpected deepgram defaults: %+v", cfg.Deepgram)
	}
	if !cfg.Deepgram.Diarize || !cfg.Deepgram.SmartFormat || !cfg.Deepgram.Punctuate || !cfg.Deepgram.Utterances {
		t.Fatalf("expected deepgram feature flags enabled by default: %+v", cfg.Deepgram)
	}
	if cfg.Paraphrase.Model != "gpt-4o" || cfg.Paraphrase.Temperature != 0.7 {
		t.Fatalf("unexpected paraphrase defaults: %+v", cfg.Paraphrase)
	}
	if cfg.TTS.Enabled {
		t.Fatal("expected TTS disabled by default")
	}
	if cfg.Chunking.SizeThresholdMB != 100 || cfg.Chunking.MaxChunkMinutes != 30 || cfg.Chunking.OverlapMS != 2000 {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if err := cfg.ValidateCredentials(true, false); err != nil {
		t.Fatalf("expected credentials to be satisfied: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir, cfg.Paths.InboxDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "lectern.toml")

	type payload struct {
		Deepgram struct {
			APIKey   string `toml:"api_key"`
			Model    string `toml:"model"`
			Language string `toml:"language"`
		} `toml:"deepgram"`
		Paraphrase struct {
			Style string `toml:"style"`
		} `toml:"paraphrase"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Deepgram.APIKey = "abc123"
	custom.Deepgram.Model = "whisper-large"
	custom.Deepgram.Language = "English"
	custom.Paraphrase.Style = "Academic"
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Deepgram.APIKey != "abc123" {
		t.Fatalf("expected Deepgram key from file, got %q", cfg.Deepgram.APIKey)
	}
	if cfg.Deepgram.Model != "whisper-large" {
		t.Fatalf("expected model override, got %q", cfg.Deepgram.Model)
	}
	if cfg.Deepgram.Language != "en" {
		t.Fatalf("expected language normalized to en, got %q", cfg.Deepgram.Language)
	}
	if cfg.Paraphrase.Style != "academic" {
		t.Fatalf("expected style lowercased, got %q", cfg.Paraphrase.Style)
	}
	if cfg.Workflow.HeartbeatInterval != 20 || cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("unexpected heartbeat settings: %+v", cfg.Workflow)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "lectern.toml")
	if err := os.WriteFile(configPath, []byte("[deepgram]\nmodle = \"nova-2\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestDotEnvFillsMissingCredentials(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	os.Unsetenv("DEEPGRAM_API_KEY")
	t.Setenv("LECTERN_TTS_PASSWORD", "from-env")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "lectern.toml")
	if err := os.WriteFile(configPath, []byte("[tts]\nusername = \"lecturer\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envFile := "DEEPGRAM_API_KEY=dotenv-key\nLECTERN_TTS_PASSWORD=dotenv-password\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Deepgram.APIKey != "dotenv-key" {
		t.Fatalf("expected Deepgram key from .env, got %q", cfg.Deepgram.APIKey)
	}
	if cfg.TTS.Password != "from-env" {
		t.Fatalf("expected process env to win over .env, got %q", cfg.TTS.Password)
	}
	if cfg.TTS.Username != "lecturer" {
		t.Fatalf("expected username from file, got %q", cfg.TTS.Username)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "DEEPGRAM_API_KEY") {
		t.Fatalf("sample config missing credential hint: %s", contents)
	}

	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if !strings.Contains(cfg.Paths.StagingDir, "lectern") {
		t.Fatalf("expected staging dir to contain lectern, got %q", cfg.Paths.StagingDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"poll interval", func(c *config.Config) { c.Workflow.QueuePollInterval = 0 }},
		{"heartbeat interval", func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 }},
		{"heartbeat ordering", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }},
		{"model", func(c *config.Config) { c.Deepgram.Model = "nova-9" }},
		{"language", func(c *config.Config) { c.Paraphrase.Language = "de" }},
		{"style", func(c *config.Config) { c.Paraphrase.Style = "poetic" }},
		{"formality", func(c *config.Config) { c.Paraphrase.Formality = "casual" }},
		{"voice", func(c *config.Config) { c.TTS.Voice = "robot" }},
		{"format", func(c *config.Config) { c.TTS.Format = "flac" }},
		{"overlap", func(c *config.Config) { c.Chunking.OverlapMS = 31 * 60 * 1000 }},
		{"tts url", func(c *config.Config) { c.TTS.Enabled = true }},
		{"tts without paraphrase", func(c *config.Config) {
			c.TTS.Enabled = true
			c.TTS.URL = "https://tts.example"
			c.Paraphrase.Enabled = false
		}},
		{"recording quality", func(c *config.Config) { c.Recording.Quality = "4k" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := config.Default()
	err := cfg.ValidateCredentials(true, true)
	if err == nil {
		t.Fatal("expected missing credential errors")
	}
	for _, fragment := range []string{"deepgram.api_key", "paraphrase.api_key", "tts.url"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %v", fragment, err)
		}
	}
	cfg.Deepgram.APIKey = "dg"
	if err := cfg.ValidateCredentials(false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

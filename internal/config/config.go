package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir   string `toml:"staging_dir"`
	LibraryDir   string `toml:"library_dir"`
	LogDir       string `toml:"log_dir"`
	InboxDir     string `toml:"inbox_dir"`
	RecordingDir string `toml:"recording_dir"`
	APIBind      string `toml:"api_bind"`
}

// Deepgram contains speech-to-text settings.
type Deepgram struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	Language           string `toml:"language"`
	SmartFormat        bool   `toml:"smart_format"`
	Utterances         bool   `toml:"utterances"`
	Punctuate          bool   `toml:"punctuate"`
	Diarize            bool   `toml:"diarize"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	RequestsPerMinute  int    `toml:"requests_per_minute"`
	LiveEndpointingMS  int    `toml:"live_endpointing_ms"`
	LiveUtteranceEndMS int    `toml:"live_utterance_end_ms"`
}

// Chunking controls how long recordings are split before transcription.
type Chunking struct {
	SizeThresholdMB float64 `toml:"size_threshold_mb"`
	MaxChunkMinutes float64 `toml:"max_chunk_minutes"`
	OverlapMS       int     `toml:"overlap_ms"`
	Concurrency     int     `toml:"concurrency"`
}

// Paraphrase contains chat-completions settings for transcript paraphrasing.
type Paraphrase struct {
	Enabled        bool    `toml:"enabled"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	Style          string  `toml:"style"`
	Formality      string  `toml:"formality"`
	Language       string  `toml:"language"`
	MaxLength      int     `toml:"max_length"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// TTS contains text-to-speech server settings.
type TTS struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	Voice          string `toml:"voice"`
	Format         string `toml:"format"`
	ChunkSize      int    `toml:"chunk_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Publish controls which artifacts land in the output directory.
type Publish struct {
	WriteTranscript   bool `toml:"write_transcript"`
	WriteParaphrase   bool `toml:"write_paraphrase"`
	BundleAudio       bool `toml:"bundle_audio"`
	OverwriteExisting bool `toml:"overwrite_existing"`
	CleanupStaging    bool `toml:"cleanup_staging"`
}

// Recording contains ffmpeg capture defaults.
type Recording struct {
	Source      string `toml:"source"`
	Quality     string `toml:"quality"`
	VideoDevice string `toml:"video_device"`
	AudioDevice string `toml:"audio_device"`
	Display     string `toml:"display"`
	AutoEnqueue bool   `toml:"auto_enqueue"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Stages         bool   `toml:"stages"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	MaxAttempts        int `toml:"max_attempts"`
	InboxSettleSeconds int `toml:"inbox_settle_seconds"`
}

// API contains HTTP API limits and the optional bearer token.
type API struct {
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Metrics           bool   `toml:"metrics"`
	Token             string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for lectern.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Deepgram: speech-to-text credentials and transcription defaults
//   - Chunking: splitting of long recordings before transcription
//   - Paraphrase: chat-completions paraphrasing defaults
//   - TTS: digest-auth speech synthesis server
//   - Publish: artifacts written to the output library
//   - Recording: ffmpeg capture defaults
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and retry limits
//   - API: HTTP API rate limiting and metrics
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Deepgram      Deepgram      `toml:"deepgram"`
	Chunking      Chunking      `toml:"chunking"`
	Paraphrase    Paraphrase    `toml:"paraphrase"`
	TTS           TTS           `toml:"tts"`
	Publish       Publish       `toml:"publish"`
	Recording     Recording     `toml:"recording"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
}

const defaultConfigPath = "~/.config/lectern/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	env, err := loadDotEnv(filepath.Dir(resolvedPath))
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(env); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.InboxDir, c.Paths.RecordingDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for chunk export and capture.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// QueueDBPath returns the SQLite queue location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.LogDir, "queue.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "lectern.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "lecternd.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "lecternd.pid")
}

// DeepgramTimeout returns the per-request Deepgram timeout.
func (c *Config) DeepgramTimeout() time.Duration {
	return time.Duration(c.Deepgram.TimeoutSeconds) * time.Second
}

// ChunkDuration returns the maximum audio duration sent in one request.
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(c.Chunking.MaxChunkMinutes * float64(time.Minute))
}

// ChunkOverlap returns the overlap between consecutive audio chunks.
func (c *Config) ChunkOverlap() time.Duration {
	return time.Duration(c.Chunking.OverlapMS) * time.Millisecond
}

// SizeThresholdBytes returns the file size above which chunking is considered.
func (c *Config) SizeThresholdBytes() int64 {
	return int64(c.Chunking.SizeThresholdMB * 1024 * 1024)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

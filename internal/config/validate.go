package config

import (
	"errors"
	"fmt"
	"strings"

	"lectern/internal/language"
	"lectern/internal/recording"
	"lectern/internal/services/deepgram"
	"lectern/internal/services/paraphraser"
	"lectern/internal/services/tts"
)

// Validate ensures the configuration is usable. All problems are reported
// together. Credentials are checked separately by ValidateCredentials so
// commands that never call a remote service can run without them.
func (c *Config) Validate() error {
	return errors.Join(
		c.validatePaths(),
		c.validateDeepgram(),
		c.validateChunking(),
		c.validateParaphrase(),
		c.validateTTS(),
		c.validateRecording(),
		c.validateWorkflow(),
	)
}

// ValidateCredentials reports missing API credentials for the remote services
// the caller is about to use.
func (c *Config) ValidateCredentials(needParaphrase, needTTS bool) error {
	var errs []error
	hint := "edit " + defaultConfigPath + " (create with 'lectern config init') or add it to .env"
	if c.Deepgram.APIKey == "" {
		errs = append(errs, fmt.Errorf("deepgram.api_key is required. Set DEEPGRAM_API_KEY or %s", hint))
	}
	if needParaphrase && c.Paraphrase.APIKey == "" {
		errs = append(errs, fmt.Errorf("paraphrase.api_key is required. Set OPENAI_API_KEY or %s", hint))
	}
	if needTTS {
		if c.TTS.URL == "" {
			errs = append(errs, errors.New("tts.url is required for speech synthesis"))
		}
		if c.TTS.Username == "" || c.TTS.Password == "" {
			errs = append(errs, errors.New("tts.username and tts.password are required. Set LECTERN_TTS_USERNAME/LECTERN_TTS_PASSWORD"))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validatePaths() error {
	var errs []error
	if c.Paths.StagingDir == "" {
		errs = append(errs, errors.New("paths.staging_dir must be set"))
	}
	if c.Paths.LogDir == "" {
		errs = append(errs, errors.New("paths.log_dir must be set"))
	}
	if c.Paths.LibraryDir == "" {
		errs = append(errs, errors.New("paths.library_dir must be set"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateDeepgram() error {
	var errs []error
	if !deepgram.IsSupportedModel(c.Deepgram.Model) {
		errs = append(errs, fmt.Errorf("deepgram.model %q is not supported (choose from %s)", c.Deepgram.Model, strings.Join(deepgram.Models(), ", ")))
	}
	if !language.IsSupported(c.Deepgram.Language) {
		errs = append(errs, fmt.Errorf("deepgram.language %q is not supported", c.Deepgram.Language))
	}
	if c.Deepgram.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("deepgram.requests_per_minute must be >= 0"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateChunking() error {
	var errs []error
	if c.Chunking.SizeThresholdMB <= 0 {
		errs = append(errs, errors.New("chunking.size_threshold_mb must be positive"))
	}
	if c.Chunking.MaxChunkMinutes <= 0 {
		errs = append(errs, errors.New("chunking.max_chunk_minutes must be positive"))
	}
	if c.Chunking.MaxChunkMinutes > 0 && c.ChunkOverlap() >= c.ChunkDuration() {
		errs = append(errs, errors.New("chunking.overlap_ms must be shorter than chunking.max_chunk_minutes"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateParaphrase() error {
	var errs []error
	if !paraphraser.IsStyle(c.Paraphrase.Style) {
		errs = append(errs, fmt.Errorf("paraphrase.style %q is not supported", c.Paraphrase.Style))
	}
	if !paraphraser.IsFormality(c.Paraphrase.Formality) {
		errs = append(errs, fmt.Errorf("paraphrase.formality %q is not supported", c.Paraphrase.Formality))
	}
	if !language.IsSupported(c.Paraphrase.Language) {
		errs = append(errs, fmt.Errorf("paraphrase.language %q is not supported", c.Paraphrase.Language))
	}
	if c.Paraphrase.MaxLength <= 0 {
		errs = append(errs, errors.New("paraphrase.max_length must be positive"))
	}
	if c.Paraphrase.Temperature < 0 || c.Paraphrase.Temperature > 2 {
		errs = append(errs, errors.New("paraphrase.temperature must be between 0 and 2"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateTTS() error {
	var errs []error
	if _, err := tts.ResolveVoice(c.TTS.Voice); err != nil {
		errs = append(errs, fmt.Errorf("tts.voice: %w", err))
	}
	if !tts.IsFormat(c.TTS.Format) {
		errs = append(errs, fmt.Errorf("tts.format %q is not supported (wav, mp3)", c.TTS.Format))
	}
	if c.TTS.ChunkSize <= 0 {
		errs = append(errs, errors.New("tts.chunk_size must be positive"))
	}
	if c.TTS.Enabled && c.TTS.URL == "" {
		errs = append(errs, errors.New("tts.url must be set when tts.enabled is true"))
	}
	if c.TTS.Enabled && !c.Paraphrase.Enabled {
		errs = append(errs, errors.New("tts.enabled requires paraphrase.enabled (speech is generated from the paraphrase)"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateRecording() error {
	var errs []error
	if !recording.IsSource(c.Recording.Source) {
		errs = append(errs, fmt.Errorf("recording.source %q is not supported (none, webcam, screen)", c.Recording.Source))
	}
	if !recording.IsQuality(c.Recording.Quality) {
		errs = append(errs, fmt.Errorf("recording.quality %q is not supported (1080p, 720p, 480p)", c.Recording.Quality))
	}
	return errors.Join(errs...)
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.max_attempts":         c.Workflow.MaxAttempts,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.InboxSettleSeconds < 0 {
		return errors.New("workflow.inbox_settle_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

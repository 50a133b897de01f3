package config

import (
	"fmt"
	"strings"

	"lectern/internal/language"
)

func (c *Config) normalize(env envSource) error {
	if env == nil {
		env = processEnv
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDeepgram(env)
	c.normalizeChunking()
	c.normalizeParaphrase(env)
	c.normalizeTTS(env)
	c.normalizeRecording()
	c.normalizeNotifications(env)
	c.normalizeAPI(env)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.staging_dir", &c.Paths.StagingDir, defaultStagingDir},
		{"paths.library_dir", &c.Paths.LibraryDir, defaultLibraryDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.inbox_dir", &c.Paths.InboxDir, ""},
		{"paths.recording_dir", &c.Paths.RecordingDir, defaultRecordingDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeDeepgram(env envSource) {
	c.Deepgram.APIKey = strings.TrimSpace(c.Deepgram.APIKey)
	if c.Deepgram.APIKey == "" {
		if value, ok := env("DEEPGRAM_API_KEY"); ok {
			c.Deepgram.APIKey = strings.TrimSpace(value)
		}
	}
	c.Deepgram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Deepgram.BaseURL), "/")
	if c.Deepgram.BaseURL == "" {
		c.Deepgram.BaseURL = defaultDeepgramBaseURL
	}
	c.Deepgram.Model = strings.ToLower(strings.TrimSpace(c.Deepgram.Model))
	if c.Deepgram.Model == "" {
		c.Deepgram.Model = defaultDeepgramModel
	}
	c.Deepgram.Language = normalizeLanguage(c.Deepgram.Language)
	if c.Deepgram.TimeoutSeconds <= 0 {
		c.Deepgram.TimeoutSeconds = defaultDeepgramTimeout
	}
	if c.Deepgram.LiveEndpointingMS <= 0 {
		c.Deepgram.LiveEndpointingMS = defaultLiveEndpointingMS
	}
	if c.Deepgram.LiveUtteranceEndMS <= 0 {
		c.Deepgram.LiveUtteranceEndMS = defaultLiveUtteranceEndMS
	}
}

func (c *Config) normalizeChunking() {
	if c.Chunking.Concurrency <= 0 {
		c.Chunking.Concurrency = 1
	}
	if c.Chunking.OverlapMS < 0 {
		c.Chunking.OverlapMS = 0
	}
}

func (c *Config) normalizeParaphrase(env envSource) {
	c.Paraphrase.APIKey = strings.TrimSpace(c.Paraphrase.APIKey)
	if c.Paraphrase.APIKey == "" {
		if value, ok := env("OPENAI_API_KEY"); ok {
			c.Paraphrase.APIKey = strings.TrimSpace(value)
		}
	}
	c.Paraphrase.BaseURL = strings.TrimRight(strings.TrimSpace(c.Paraphrase.BaseURL), "/")
	if c.Paraphrase.BaseURL == "" {
		c.Paraphrase.BaseURL = defaultParaphraseBaseURL
	}
	c.Paraphrase.Model = strings.TrimSpace(c.Paraphrase.Model)
	if c.Paraphrase.Model == "" {
		c.Paraphrase.Model = defaultParaphraseModel
	}
	c.Paraphrase.Style = strings.ToLower(strings.TrimSpace(c.Paraphrase.Style))
	if c.Paraphrase.Style == "" {
		c.Paraphrase.Style = defaultParaphraseStyle
	}
	c.Paraphrase.Formality = strings.ToLower(strings.TrimSpace(c.Paraphrase.Formality))
	if c.Paraphrase.Formality == "" {
		c.Paraphrase.Formality = defaultParaphraseFormality
	}
	c.Paraphrase.Language = normalizeLanguage(c.Paraphrase.Language)
	if c.Paraphrase.TimeoutSeconds <= 0 {
		c.Paraphrase.TimeoutSeconds = defaultParaphraseTimeout
	}
}

func (c *Config) normalizeTTS(env envSource) {
	c.TTS.URL = strings.TrimSpace(c.TTS.URL)
	if c.TTS.URL == "" {
		if value, ok := env("LECTERN_TTS_URL"); ok {
			c.TTS.URL = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.TTS.Username) == "" {
		if value, ok := env("LECTERN_TTS_USERNAME"); ok {
			c.TTS.Username = value
		}
	}
	if c.TTS.Password == "" {
		if value, ok := env("LECTERN_TTS_PASSWORD"); ok {
			c.TTS.Password = value
		}
	}
	c.TTS.Username = strings.TrimSpace(c.TTS.Username)
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	c.TTS.Format = strings.ToLower(strings.TrimSpace(c.TTS.Format))
	if c.TTS.Format == "" {
		c.TTS.Format = defaultTTSFormat
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeout
	}
}

func (c *Config) normalizeRecording() {
	c.Recording.Source = strings.ToLower(strings.TrimSpace(c.Recording.Source))
	if c.Recording.Source == "" {
		c.Recording.Source = defaultRecordingSource
	}
	c.Recording.Quality = strings.ToLower(strings.TrimSpace(c.Recording.Quality))
	if c.Recording.Quality == "" {
		c.Recording.Quality = defaultRecordingQuality
	}
	if strings.TrimSpace(c.Recording.VideoDevice) == "" {
		c.Recording.VideoDevice = defaultVideoDevice
	}
	if strings.TrimSpace(c.Recording.AudioDevice) == "" {
		c.Recording.AudioDevice = defaultAudioDevice
	}
	if strings.TrimSpace(c.Recording.Display) == "" {
		c.Recording.Display = defaultDisplay
	}
}

func (c *Config) normalizeNotifications(env envSource) {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := env("LECTERN_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeAPI(env envSource) {
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := env("LECTERN_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	if c.API.RequestsPerMinute < 0 {
		c.API.RequestsPerMinute = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// normalizeLanguage maps known codes and words to ISO 639-1 and keeps unknown
// values lowercased so validation can report them.
func normalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultLanguage
	}
	if code, ok := language.Normalize(value); ok {
		return code
	}
	return strings.ToLower(value)
}

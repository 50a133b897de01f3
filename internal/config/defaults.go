package config

const (
	defaultStagingDir          = "~/.local/share/lectern/staging"
	defaultLibraryDir          = "~/lectures"
	defaultLogDir              = "~/.local/share/lectern/logs"
	defaultInboxDir            = "~/.local/share/lectern/inbox"
	defaultRecordingDir        = "~/lectures/recordings"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultDeepgramBaseURL     = "https://api.deepgram.com"
	defaultDeepgramModel       = "nova-2"
	defaultLanguage            = "cs"
	defaultDeepgramTimeout     = 300
	defaultDeepgramRPM         = 60
	defaultLiveEndpointingMS   = 300
	defaultLiveUtteranceEndMS  = 1000
	defaultSizeThresholdMB     = 100
	defaultMaxChunkMinutes     = 30
	defaultChunkOverlapMS      = 2000
	defaultChunkConcurrency    = 2
	defaultParaphraseBaseURL   = "https://api.openai.com/v1"
	defaultParaphraseModel     = "gpt-4o"
	defaultParaphraseTemp      = 0.7
	defaultParaphraseStyle     = "standard"
	defaultParaphraseFormality = "neutral"
	defaultParaphraseMaxLength = 4000
	defaultParaphraseTimeout   = 120
	defaultTTSVoice            = "czech_male"
	defaultTTSFormat           = "wav"
	defaultTTSChunkSize        = 4000
	defaultTTSTimeout          = 300
	defaultRecordingSource     = "none"
	defaultRecordingQuality    = "720p"
	defaultVideoDevice         = "/dev/video0"
	defaultAudioDevice         = "default"
	defaultDisplay             = ":0.0"
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultMaxAttempts         = 3
	defaultInboxSettleSeconds  = 5
	defaultAPIRequestsPerMin   = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			LibraryDir:   defaultLibraryDir,
			LogDir:       defaultLogDir,
			InboxDir:     defaultInboxDir,
			RecordingDir: defaultRecordingDir,
			APIBind:      defaultAPIBind,
		},
		Deepgram: Deepgram{
			BaseURL:            defaultDeepgramBaseURL,
			Model:              defaultDeepgramModel,
			Language:           defaultLanguage,
			SmartFormat:        true,
			Utterances:         true,
			Punctuate:          true,
			Diarize:            true,
			TimeoutSeconds:     defaultDeepgramTimeout,
			RequestsPerMinute:  defaultDeepgramRPM,
			LiveEndpointingMS:  defaultLiveEndpointingMS,
			LiveUtteranceEndMS: defaultLiveUtteranceEndMS,
		},
		Chunking: Chunking{
			SizeThresholdMB: defaultSizeThresholdMB,
			MaxChunkMinutes: defaultMaxChunkMinutes,
			OverlapMS:       defaultChunkOverlapMS,
			Concurrency:     defaultChunkConcurrency,
		},
		Paraphrase: Paraphrase{
			Enabled:        true,
			BaseURL:        defaultParaphraseBaseURL,
			Model:          defaultParaphraseModel,
			Temperature:    defaultParaphraseTemp,
			Style:          defaultParaphraseStyle,
			Formality:      defaultParaphraseFormality,
			Language:       defaultLanguage,
			MaxLength:      defaultParaphraseMaxLength,
			TimeoutSeconds: defaultParaphraseTimeout,
		},
		TTS: TTS{
			Enabled:        false,
			Voice:          defaultTTSVoice,
			Format:         defaultTTSFormat,
			ChunkSize:      defaultTTSChunkSize,
			TimeoutSeconds: defaultTTSTimeout,
		},
		Publish: Publish{
			WriteTranscript: true,
			WriteParaphrase: true,
			BundleAudio:     true,
			CleanupStaging:  true,
		},
		Recording: Recording{
			Source:      defaultRecordingSource,
			Quality:     defaultRecordingQuality,
			VideoDevice: defaultVideoDevice,
			AudioDevice: defaultAudioDevice,
			Display:     defaultDisplay,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Queue:          true,
			Stages:         true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxAttempts:        defaultMaxAttempts,
			InboxSettleSeconds: defaultInboxSettleSeconds,
		},
		API: API{
			RequestsPerMinute: defaultAPIRequestsPerMin,
			Metrics:           true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

package config

const (
	defaultDataDir                = "~/.local/share/vigil/data"
	defaultFrameDir               = "~/.local/share/vigil/frames"
	defaultLogDir                 = "~/.local/share/vigil/logs"
	defaultAPIBind                = "127.0.0.1:7411"
	defaultWorkers                = 2
	defaultPollInterval           = 2
	defaultHeartbeatInterval      = 15
	defaultHeartbeatTimeout       = 120
	defaultMaxAttempts            = 3
	defaultResultBuffer           = 64
	defaultOllamaURL              = "http://127.0.0.1:11434"
	defaultTriageModel            = "moondream"
	defaultDetailedModel          = "llava:13b"
	defaultTriageTimeoutSeconds   = 10
	defaultDetailedTimeoutSeconds = 45
	defaultFallbackBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultFallbackModel          = "google/gemini-3-flash-preview"
	defaultFallbackTimeout        = 60
	defaultSilenceRMS             = 0.01
	defaultPeakCount              = 8
	defaultToleranceHz            = 50
	defaultNotifyTimeout          = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			FrameDir: defaultFrameDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Scheduler: Scheduler{
			Workers:           defaultWorkers,
			PollInterval:      defaultPollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
			MaxAttempts:       defaultMaxAttempts,
			ResultBuffer:      defaultResultBuffer,
		},
		Inference: Inference{
			OllamaURL:              defaultOllamaURL,
			TriageModel:            defaultTriageModel,
			DetailedModel:          defaultDetailedModel,
			TriageTimeoutSeconds:   defaultTriageTimeoutSeconds,
			DetailedTimeoutSeconds: defaultDetailedTimeoutSeconds,
		},
		Fallback: Fallback{
			BaseURL:        defaultFallbackBaseURL,
			Model:          defaultFallbackModel,
			TimeoutSeconds: defaultFallbackTimeout,
		},
		Audio: Audio{
			SilenceRMS:  defaultSilenceRMS,
			PeakCount:   defaultPeakCount,
			ToleranceHz: defaultToleranceHz,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Alerts:         true,
			Errors:         true,
			Queue:          true,
			Devices:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeInference()
	c.normalizeFallback()
	c.normalizeAudio()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeScenarios()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FrameDir) == "" {
		c.Paths.FrameDir = defaultFrameDir
	}
	if c.Paths.FrameDir, err = expandPath(c.Paths.FrameDir); err != nil {
		return fmt.Errorf("paths.frame_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = defaultWorkers
	}
	if c.Scheduler.PollInterval <= 0 {
		c.Scheduler.PollInterval = defaultPollInterval
	}
	if c.Scheduler.HeartbeatInterval <= 0 {
		c.Scheduler.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Scheduler.HeartbeatTimeout <= 0 {
		c.Scheduler.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Scheduler.MaxAttempts <= 0 {
		c.Scheduler.MaxAttempts = defaultMaxAttempts
	}
	if c.Scheduler.ResultBuffer <= 0 {
		c.Scheduler.ResultBuffer = defaultResultBuffer
	}
}

func (c *Config) normalizeInference() {
	c.Inference.OllamaURL = strings.TrimRight(strings.TrimSpace(c.Inference.OllamaURL), "/")
	if c.Inference.OllamaURL == "" {
		c.Inference.OllamaURL = defaultOllamaURL
	}
	c.Inference.TriageModel = strings.TrimSpace(c.Inference.TriageModel)
	if c.Inference.TriageModel == "" {
		c.Inference.TriageModel = defaultTriageModel
	}
	c.Inference.DetailedModel = strings.TrimSpace(c.Inference.DetailedModel)
	if c.Inference.DetailedModel == "" {
		c.Inference.DetailedModel = defaultDetailedModel
	}
	if c.Inference.TriageTimeoutSeconds <= 0 {
		c.Inference.TriageTimeoutSeconds = defaultTriageTimeoutSeconds
	}
	if c.Inference.DetailedTimeoutSeconds <= 0 {
		c.Inference.DetailedTimeoutSeconds = defaultDetailedTimeoutSeconds
	}
}

func (c *Config) normalizeFallback() {
	c.Fallback.BaseURL = strings.TrimSpace(c.Fallback.BaseURL)
	if c.Fallback.BaseURL == "" {
		c.Fallback.BaseURL = defaultFallbackBaseURL
	}
	c.Fallback.Model = strings.TrimSpace(c.Fallback.Model)
	if c.Fallback.Model == "" {
		c.Fallback.Model = defaultFallbackModel
	}
	c.Fallback.Referer = strings.TrimSpace(c.Fallback.Referer)
	c.Fallback.Title = strings.TrimSpace(c.Fallback.Title)
	if c.Fallback.TimeoutSeconds <= 0 {
		c.Fallback.TimeoutSeconds = defaultFallbackTimeout
	}
	c.Fallback.APIKey = strings.TrimSpace(c.Fallback.APIKey)
	if c.Fallback.APIKey == "" {
		if value, ok := os.LookupEnv("VIGIL_FALLBACK_API_KEY"); ok {
			c.Fallback.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Fallback.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeAudio() {
	if c.Audio.SilenceRMS <= 0 {
		c.Audio.SilenceRMS = defaultSilenceRMS
	}
	if c.Audio.PeakCount <= 0 {
		c.Audio.PeakCount = defaultPeakCount
	}
	if c.Audio.ToleranceHz <= 0 {
		c.Audio.ToleranceHz = defaultToleranceHz
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
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

func (c *Config) normalizeScenarios() {
	if len(c.Scenarios) == 0 {
		return
	}
	normalized := make(map[string]Scenario, len(c.Scenarios))
	for key, override := range c.Scenarios {
		override.TriagePrompt = strings.TrimSpace(override.TriagePrompt)
		override.DetailedPrompt = strings.TrimSpace(override.DetailedPrompt)
		override.BasePriority = strings.ToLower(strings.TrimSpace(override.BasePriority))
		normalized[strings.ToLower(strings.TrimSpace(key))] = override
	}
	c.Scenarios = normalized
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownScenarioKeys = map[string]struct{}{
	"pet":     {},
	"baby":    {},
	"elderly": {},
}

var knownPriorityNames = map[string]struct{}{
	"low":    {},
	"normal": {},
	"high":   {},
	"urgent": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateFallback(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateScenarios(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Workers < 2 || c.Scheduler.Workers > 3 {
		return errors.New("scheduler.workers must be 2 or 3")
	}
	if err := ensurePositiveMap(map[string]int{
		"scheduler.poll_interval":      c.Scheduler.PollInterval,
		"scheduler.heartbeat_interval": c.Scheduler.HeartbeatInterval,
		"scheduler.heartbeat_timeout":  c.Scheduler.HeartbeatTimeout,
		"scheduler.max_attempts":       c.Scheduler.MaxAttempts,
		"scheduler.result_buffer":      c.Scheduler.ResultBuffer,
	}); err != nil {
		return err
	}
	if c.Scheduler.HeartbeatTimeout <= c.Scheduler.HeartbeatInterval {
		return errors.New("scheduler.heartbeat_timeout must be greater than scheduler.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateInference() error {
	if strings.TrimSpace(c.Inference.OllamaURL) == "" {
		return errors.New("inference.ollama_url must be set")
	}
	if strings.TrimSpace(c.Inference.TriageModel) == "" {
		return errors.New("inference.triage_model must be set")
	}
	if strings.TrimSpace(c.Inference.DetailedModel) == "" {
		return errors.New("inference.detailed_model must be set")
	}
	return ensurePositiveMap(map[string]int{
		"inference.triage_timeout_seconds":   c.Inference.TriageTimeoutSeconds,
		"inference.detailed_timeout_seconds": c.Inference.DetailedTimeoutSeconds,
	})
}

func (c *Config) validateFallback() error {
	if !c.Fallback.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Fallback.APIKey) == "" {
		return errors.New("fallback.api_key must be set when fallback.enabled is true (or set OPENROUTER_API_KEY)")
	}
	if strings.TrimSpace(c.Fallback.BaseURL) == "" {
		return errors.New("fallback.base_url must be set when fallback.enabled is true")
	}
	if strings.TrimSpace(c.Fallback.Model) == "" {
		return errors.New("fallback.model must be set when fallback.enabled is true")
	}
	if c.Fallback.TimeoutSeconds <= 0 {
		return errors.New("fallback.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SilenceRMS <= 0 || c.Audio.SilenceRMS >= 1 {
		return errors.New("audio.silence_rms must be between 0 and 1")
	}
	if c.Audio.PeakCount < 1 {
		return errors.New("audio.peak_count must be >= 1")
	}
	if c.Audio.ToleranceHz <= 0 {
		return errors.New("audio.tolerance_hz must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateScenarios() error {
	for key, override := range c.Scenarios {
		if _, ok := knownScenarioKeys[key]; !ok {
			return fmt.Errorf("scenarios.%s: unknown scenario (expected pet, baby, or elderly)", key)
		}
		if override.BasePriority != "" {
			if _, ok := knownPriorityNames[override.BasePriority]; !ok {
				return fmt.Errorf("scenarios.%s.base_priority: unknown priority %q", key, override.BasePriority)
			}
		}
		if override.MotionThreshold < 0 || override.MotionThreshold > 1 {
			return fmt.Errorf("scenarios.%s.motion_threshold must be between 0 and 1", key)
		}
		if override.AudioThreshold < 0 || override.AudioThreshold > 1 {
			return fmt.Errorf("scenarios.%s.audio_threshold must be between 0 and 1", key)
		}
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

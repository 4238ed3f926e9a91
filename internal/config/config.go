package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	FrameDir string `toml:"frame_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Scheduler contains worker pool sizing and timing knobs.
type Scheduler struct {
	Workers           int `toml:"workers"`
	PollInterval      int `toml:"poll_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
	MaxAttempts       int `toml:"max_attempts"`
	ResultBuffer      int `toml:"result_buffer"`
}

// Inference contains the local Ollama backend settings for both vision tiers.
type Inference struct {
	OllamaURL              string `toml:"ollama_url"`
	TriageModel            string `toml:"triage_model"`
	DetailedModel          string `toml:"detailed_model"`
	TriageTimeoutSeconds   int    `toml:"triage_timeout_seconds"`
	DetailedTimeoutSeconds int    `toml:"detailed_timeout_seconds"`
}

// Fallback contains the remote OpenAI-compatible backend used when the local
// tiers disagree on an elevated triage.
type Fallback struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Configured reports whether the fallback tier can actually be called.
func (f Fallback) Configured() bool {
	return f.Enabled && strings.TrimSpace(f.APIKey) != "" && strings.TrimSpace(f.Model) != ""
}

// Audio contains spectral analyzer thresholds.
type Audio struct {
	SilenceRMS  float64 `toml:"silence_rms"`
	PeakCount   int     `toml:"peak_count"`
	ToleranceHz float64 `toml:"tolerance_hz"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Alerts         bool   `toml:"alerts"`
	Errors         bool   `toml:"errors"`
	Queue          bool   `toml:"queue"`
	Devices        bool   `toml:"devices"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	// HandlerOverrides raises or lowers the log level for one analysis
	// handler without touching the rest of the daemon, keyed by job kind
	// ("frame", "audio").
	HandlerOverrides map[string]string `toml:"handler_overrides"`
}

// Scenario overrides the built-in monitoring profile for one scenario key
// (pet, baby, elderly). Empty fields keep the built-in value.
type Scenario struct {
	TriagePrompt    string  `toml:"triage_prompt"`
	DetailedPrompt  string  `toml:"detailed_prompt"`
	MotionThreshold float64 `toml:"motion_threshold"`
	AudioThreshold  float64 `toml:"audio_threshold"`
	BasePriority    string  `toml:"base_priority"`
}

// Config encapsulates all configuration values for Vigil.
//
// Configuration sections by subsystem:
//   - Paths: queue database, frame drop directory, logs, API bind address
//   - Scheduler: worker count, poll/heartbeat timing, retry budget
//   - Inference: local Ollama backend and the two vision model tiers
//   - Fallback: remote OpenAI-compatible backend for escalations
//   - Audio: spectral analyzer thresholds
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Scenarios: per-scenario prompt/threshold/priority overrides
type Config struct {
	Paths         Paths               `toml:"paths"`
	Scheduler     Scheduler           `toml:"scheduler"`
	Inference     Inference           `toml:"inference"`
	Fallback      Fallback            `toml:"fallback"`
	Audio         Audio               `toml:"audio"`
	Notifications Notifications       `toml:"notifications"`
	Logging       Logging             `toml:"logging"`
	Scenarios     map[string]Scenario `toml:"scenarios"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vigil/config.toml")
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
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
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

	defaultPath, err := expandPath("~/.config/vigil/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vigil.toml")
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
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.FrameDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
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
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

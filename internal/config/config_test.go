package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vigil/internal/config"
)

func TestLoadDefaultsExpandPathsAndEnvKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
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

	wantData := filepath.Join(tempHome, ".local", "share", "vigil", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7411" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Fatalf("unexpected worker count: %d", cfg.Scheduler.Workers)
	}
	if cfg.Fallback.APIKey != "env-key" {
		t.Fatalf("expected fallback key from env, got %q", cfg.Fallback.APIKey)
	}
	if cfg.Fallback.Configured() {
		t.Fatal("fallback should stay unconfigured until enabled")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesOverrides(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+filepath.Join(base, "data")+`"
log_dir = "`+filepath.Join(base, "logs")+`"

[scheduler]
workers = 3
poll_interval = 1

[inference]
triage_model = "tiny-triage"

[scenarios.baby]
motion_threshold = 0.4
base_priority = "urgent"
`)

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Scheduler.Workers != 3 {
		t.Fatalf("workers override lost: %d", cfg.Scheduler.Workers)
	}
	if cfg.Inference.TriageModel != "tiny-triage" {
		t.Fatalf("triage model override lost: %q", cfg.Inference.TriageModel)
	}
	if cfg.Inference.DetailedModel == "" {
		t.Fatal("detailed model default lost")
	}
	override, ok := cfg.Scenarios["baby"]
	if !ok {
		t.Fatal("baby scenario override missing")
	}
	if override.MotionThreshold != 0.4 {
		t.Fatalf("unexpected motion threshold: %v", override.MotionThreshold)
	}
	if override.BasePriority != "urgent" {
		t.Fatalf("unexpected base priority: %q", override.BasePriority)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "workers out of range",
			body: "[scheduler]\nworkers = 5\n",
			want: "scheduler.workers",
		},
		{
			name: "heartbeat timeout too small",
			body: "[scheduler]\nheartbeat_interval = 30\nheartbeat_timeout = 30\n",
			want: "heartbeat_timeout",
		},
		{
			name: "unknown scenario",
			body: "[scenarios.fish]\nmotion_threshold = 0.5\n",
			want: "unknown scenario",
		},
		{
			name: "bad base priority",
			body: "[scenarios.pet]\nbase_priority = \"critical\"\n",
			want: "base_priority",
		},
		{
			name: "fallback enabled without key",
			body: "[fallback]\nenabled = true\napi_key = \"\"\n",
			want: "fallback.api_key",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OPENROUTER_API_KEY", "")
			t.Setenv("VIGIL_FALLBACK_API_KEY", "")
			path := writeConfig(t, tc.body)
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.FrameDir = filepath.Join(base, "frames")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.FrameDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Inference.OllamaURL == "" {
		t.Fatal("sample config missing inference.ollama_url")
	}
}

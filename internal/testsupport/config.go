package testsupport

import (
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.FrameDir = filepath.Join(base, "frames")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Scheduler.PollInterval = 1

	builder := &configBuilder{
		t:   t,
		cfg: &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers overrides the scheduler worker count on the test config.
func WithWorkers(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.Workers = count
	}
}

// WithNtfyTopic sets the ntfy topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithFallback enables the remote fallback tier with the given endpoint.
func WithFallback(baseURL, apiKey, model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fallback.Enabled = true
		b.cfg.Fallback.BaseURL = baseURL
		b.cfg.Fallback.APIKey = apiKey
		b.cfg.Fallback.Model = model
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

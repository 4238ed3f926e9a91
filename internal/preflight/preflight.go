package preflight

import (
	"context"
	"strings"

	"vigil/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Frame directory", cfg.Paths.FrameDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// The vision cascade cannot run at all without the local backend.
	results = append(results, CheckOllama(ctx, cfg.Inference))

	if cfg.Fallback.Enabled {
		results = append(results, CheckFallback(ctx, cfg.Fallback))
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNotifications(cfg.Notifications.NtfyTopic))
	}

	return results
}

package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"vigil/internal/config"
	"vigil/internal/inference"
)

// CheckOllama verifies that the local backend answers and that both vision
// tier models are pulled.
func CheckOllama(ctx context.Context, cfg config.Inference) Result {
	const name = "Ollama"

	base := strings.TrimSpace(cfg.OllamaURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	backend := inference.NewOllamaBackend(base)
	if !backend.IsRunning(checkCtx) {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable at %s", base)}
	}

	var missing []string
	seen := map[string]bool{}
	for _, model := range []string{cfg.TriageModel, cfg.DetailedModel} {
		model = strings.TrimSpace(model)
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true
		if !backend.HasModel(checkCtx, model) {
			missing = append(missing, model)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing models: %s", strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: "reachable, models present"}
}

// CheckFallback verifies that the remote escalation tier is usable. It uses a
// 30-second timeout and a single attempt (no retries).
func CheckFallback(ctx context.Context, cfg config.Fallback) Result {
	const name = "Fallback backend"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	backend := inference.NewRemoteBackend(inference.RemoteConfig{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, inference.WithRetryMaxAttempts(1))

	if err := backend.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckNotifications validates the ntfy topic URL shape without sending
// anything.
func CheckNotifications(topic string) Result {
	const name = "Notifications"

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("ntfy topic must be a full URL like https://ntfy.sh/vigil-home, got %q", topic)}
	}
	if strings.Trim(parsed.Path, "/") == "" {
		return Result{Name: name, Detail: fmt.Sprintf("ntfy topic URL %q is missing the topic path", topic)}
	}
	return Result{Name: name, Passed: true, Detail: "topic configured"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeBackendError produces a human-readable summary for backend health
// check failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	return err.Error()
}

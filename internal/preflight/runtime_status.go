package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"vigil/internal/config"
)

// CheckOllamaFromConfig evaluates local backend status from config and
// connectivity.
func CheckOllamaFromConfig(cfg *config.Config) Result {
	const name = "Ollama"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Inference.OllamaURL) == "" {
		return Result{Name: name, Detail: "Missing URL"}
	}
	return CheckOllama(context.Background(), cfg.Inference)
}

// CheckFallbackFromConfig evaluates fallback tier status from config and
// connectivity.
func CheckFallbackFromConfig(cfg *config.Config) Result {
	const name = "Fallback backend"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Fallback.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Fallback.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckFallback(context.Background(), cfg.Fallback)
}

// CameraProbe reports the current video capture device snapshot.
type CameraProbe struct {
	Devices []string
}

// ProbeCameras lists video4linux capture nodes under /dev.
func ProbeCameras() CameraProbe {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil || len(matches) == 0 {
		return CameraProbe{}
	}
	sort.Strings(matches)
	return CameraProbe{Devices: matches}
}

// Detail renders a display-friendly summary for status UIs.
func (p CameraProbe) Detail() string {
	switch len(p.Devices) {
	case 0:
		return "No cameras detected"
	case 1:
		return fmt.Sprintf("1 camera (%s)", p.Devices[0])
	default:
		return fmt.Sprintf("%d cameras (%s)", len(p.Devices), strings.Join(p.Devices, ", "))
	}
}

package inference

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"vigil/internal/services"
)

// loadImageB64 resolves the frame bytes for a request. A pre-encoded payload
// wins; otherwise the frame is read from disk. A missing file is not
// retryable, a read failure might be (NFS hiccup, rotating capture dir).
func loadImageB64(component string, req Request) (string, error) {
	if req.ImageB64 != "" {
		return req.ImageB64, nil
	}
	if strings.TrimSpace(req.ImagePath) == "" {
		return "", services.Wrap(services.ErrValidation, component, "generate", "image required", nil)
	}
	data, err := os.ReadFile(req.ImagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, component, "generate", "frame missing", err)
		}
		return "", services.Wrap(services.ErrTransient, component, "generate", "read frame", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// imageMIME guesses the frame's media type for data URIs. Capture writes
// JPEG, so that is the default.
func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

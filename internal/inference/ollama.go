package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil/internal/services"
)

// OllamaBackend talks to a local Ollama instance over HTTP. One client serves
// both model tiers; the caller picks the model per request.
type OllamaBackend struct {
	baseURL    string
	httpClient *http.Client
}

// OllamaOption customizes the backend.
type OllamaOption func(*OllamaBackend)

// WithOllamaHTTPClient overrides the default HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(b *OllamaBackend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// NewOllamaBackend creates a backend targeting the given Ollama base URL.
// Per-call deadlines come from the request context, so the client itself
// carries no timeout.
func NewOllamaBackend(baseURL string, opts ...OllamaOption) *OllamaBackend {
	backend := &OllamaBackend{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(backend)
	}
	return backend
}

func (b *OllamaBackend) Name() string {
	return "ollama"
}

// generateRequest is the JSON body for POST /api/generate.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

// generateResponse is the JSON returned by POST /api/generate (non-streaming).
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate sends the frame and prompt to the requested model and returns the
// completion text.
func (b *OllamaBackend) Generate(ctx context.Context, req Request) (Response, error) {
	var empty Response
	if strings.TrimSpace(req.Model) == "" {
		return empty, services.Wrap(services.ErrValidation, "ollama", "generate", "model required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return empty, services.Wrap(services.ErrValidation, "ollama", "generate", "prompt required", nil)
	}
	image, err := loadImageB64("ollama", req)
	if err != nil {
		return empty, err
	}

	payload := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Images: []string{image},
		Stream: false,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "ollama", "generate", "encode body", err)
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/generate", bytes.NewReader(encoded))
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "ollama", "generate", "new request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return empty, services.Wrap(services.ErrBackend, "ollama", "generate", "http error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrBackend, "ollama", "generate", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, classifyOllamaStatus(resp.StatusCode, body, req.Model)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return empty, services.Wrap(services.ErrBackend, "ollama", "generate", "decode response", err)
	}
	if result.Error != "" {
		return empty, services.Wrap(services.ErrBackend, "ollama", "generate", result.Error, nil)
	}

	model := result.Model
	if model == "" {
		model = req.Model
	}
	return Response{
		Text:    strings.TrimSpace(result.Response),
		Model:   model,
		Latency: time.Since(started),
	}, nil
}

// classifyOllamaStatus maps HTTP failures onto the retry taxonomy. A 404 from
// /api/generate means the model is not pulled, which no amount of retrying
// fixes.
func classifyOllamaStatus(status int, body []byte, model string) error {
	detail := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrConfiguration, "ollama", "generate",
			fmt.Sprintf("model %q unavailable: %s", model, detail), nil)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "ollama", "generate",
			fmt.Sprintf("http %d: %s", status, detail), nil)
	case status >= http.StatusInternalServerError, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return services.Wrap(services.ErrBackend, "ollama", "generate",
			fmt.Sprintf("http %d: %s", status, detail), nil)
	default:
		return services.Wrap(services.ErrValidation, "ollama", "generate",
			fmt.Sprintf("http %d: %s", status, detail), nil)
	}
}

// tagsResponse mirrors the JSON returned by GET /api/tags.
type tagsResponse struct {
	Models []modelEntry `json:"models"`
}

type modelEntry struct {
	Name string `json:"name"`
}

// IsRunning reports whether the Ollama server answers GET /api/tags with 200.
func (b *OllamaBackend) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of all models present in the local instance.
func (b *OllamaBackend) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ollama", "tags", "new request", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrBackend, "ollama", "tags", "http error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrBackend, "ollama", "tags",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, services.Wrap(services.ErrBackend, "ollama", "tags", "decode response", err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// HasModel reports whether the given model name is present locally.
func (b *OllamaBackend) HasModel(ctx context.Context, name string) bool {
	models, err := b.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		// Ollama may return "llava:13b" for a bare "llava" lookup.
		if m == name || strings.HasPrefix(m, name+":") {
			return true
		}
	}
	return false
}

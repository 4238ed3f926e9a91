package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vigil/internal/services"
)

const (
	defaultRemoteTimeout  = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// RemoteConfig captures the runtime settings required to talk to the
// OpenAI-compatible fallback API.
type RemoteConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// RemoteBackend wraps an OpenRouter-style chat completion endpoint and sends
// frames as image_url data URIs.
type RemoteBackend struct {
	cfg        RemoteConfig
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// RemoteOption customizes the backend.
type RemoteOption func(*RemoteBackend)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(b *RemoteBackend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) RemoteOption {
	return func(b *RemoteBackend) {
		b.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) RemoteOption {
	return func(b *RemoteBackend) {
		b.retryBaseDelay = baseDelay
		b.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) RemoteOption {
	return func(b *RemoteBackend) {
		b.sleeper = sleeper
	}
}

// NewRemoteBackend constructs a fallback backend using the supplied
// configuration.
func NewRemoteBackend(cfg RemoteConfig, opts ...RemoteOption) *RemoteBackend {
	timeout := defaultRemoteTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	backend := &RemoteBackend{
		cfg: RemoteConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(backend)
	}
	if backend.cfg.BaseURL == "" {
		backend.cfg.BaseURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if backend.httpClient == nil {
		backend.httpClient = &http.Client{Timeout: defaultRemoteTimeout}
	}
	return backend
}

func (b *RemoteBackend) Name() string {
	return "remote"
}

// Generate sends the frame and prompt to the remote model. The request model
// falls back to the configured one when empty, so the cascade can run the
// fallback without knowing which model the operator picked.
func (b *RemoteBackend) Generate(ctx context.Context, req Request) (Response, error) {
	var empty Response
	if b.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "remote", "generate", "api key required", nil)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = b.cfg.Model
	}
	if model == "" {
		return empty, services.Wrap(services.ErrConfiguration, "remote", "generate", "model required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return empty, services.Wrap(services.ErrValidation, "remote", "generate", "prompt required", nil)
	}
	image, err := loadImageB64("remote", req)
	if err != nil {
		return empty, err
	}

	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContentPart{
					{Type: "text", Text: req.Prompt},
					{Type: "image_url", ImageURL: &chatImageURL{
						URL: "data:" + imageMIME(req.ImagePath) + ";base64," + image,
					}},
				},
			},
		},
		Temperature: 0,
	}

	started := time.Now()
	text, respModel, err := b.completionContentWithRetry(ctx, payload)
	if err != nil {
		return empty, classifyRemoteError(err)
	}
	if respModel == "" {
		respModel = model
	}
	return Response{
		Text:    strings.TrimSpace(text),
		Model:   respModel,
		Latency: time.Since(started),
	}, nil
}

// HealthCheck issues a minimal text-only completion to verify the API key and
// model are usable.
func (b *RemoteBackend) HealthCheck(ctx context.Context) error {
	if b.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "remote", "health", "api key required", nil)
	}
	payload := chatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: []chatContentPart{{Type: "text", Text: "Respond with the single word OK."}}},
		},
		Temperature: 0,
	}
	_, _, err := b.completionContentWithRetry(ctx, payload)
	if err != nil {
		return classifyRemoteError(err)
	}
	return nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers mistakenly return the streaming schema (delta) even
		// when stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("remote request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"remote generate: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

func (b *RemoteBackend) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest) (string, string, error) {
	attempts := b.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		completion, body, err := b.sendChatRequestOnce(ctx, payload)
		if err == nil {
			content, finishReason := extractCompletionContent(completion)
			if content == "" {
				if len(completion.Choices) == 0 {
					err = errors.New("remote generate: empty choices")
				} else {
					err = &emptyContentError{
						FinishReason: finishReason,
						Refusal:      extractCompletionRefusal(completion),
						Snippet:      summarizePayloadSnippet(string(body)),
					}
				}
			} else {
				return content, completion.Model, nil
			}
		}

		delay, retry := b.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", "", err
		}
		if err := b.sleep(ctx, delay); err != nil {
			return "", "", err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", "", fmt.Errorf("remote generate: failed after %d attempts: %w", attempts, lastErr)
}

func extractCompletionContent(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(
			choice.Message.Content,
			choice.Delta.Content,
			choice.Text,
		); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (b *RemoteBackend) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("remote request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("remote request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", b.cfg.Referer)
		req.Header.Set("Referer", b.cfg.Referer)
	}
	if b.cfg.Title != "" {
		req.Header.Set("X-Title", b.cfg.Title)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("remote request: http error (timeout=%s): %w", b.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("remote request: read body (timeout=%s): %w", b.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("remote request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("remote request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

func (b *RemoteBackend) timeoutDuration() time.Duration {
	if b == nil || b.httpClient == nil {
		return defaultRemoteTimeout
	}
	if b.httpClient.Timeout <= 0 {
		return defaultRemoteTimeout
	}
	return b.httpClient.Timeout
}

func (b *RemoteBackend) retryAttempts() int {
	if b == nil {
		return 1
	}
	if b.retryMaxAttempts <= 0 {
		return 1
	}
	return b.retryMaxAttempts
}

func (b *RemoteBackend) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil {
		return 0, false
	}
	if ctx == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	if _, ok := err.(*emptyContentError); ok {
		return b.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return b.capDelay(statusErr.RetryAfter), true
			}
			return b.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return b.backoffDelay(attempt), true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error often wraps net.Error types, but keep a conservative retry
		// for non-context errors anyway.
		if urlErr.Timeout() {
			return b.backoffDelay(attempt), true
		}
	}

	return 0, false
}

func (b *RemoteBackend) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if b != nil {
		if b.retryBaseDelay >= 0 {
			base = b.retryBaseDelay
		}
		if b.retryMaxDelay > 0 {
			maxDelay = b.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	retryCount := attempt // attempt is 1-based, delay is for the next attempt.
	if retryCount <= 0 {
		retryCount = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < retryCount; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return b.capDelay(delay)
}

func (b *RemoteBackend) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if b != nil && b.retryMaxDelay > 0 {
		maxDelay = b.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (b *RemoteBackend) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("remote retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if b != nil && b.sleeper != nil {
		b.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// classifyRemoteError tags raw transport errors with the retry taxonomy.
// Auth and bad-request failures point at configuration; everything else is
// the provider's problem and worth another attempt later.
func classifyRemoteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "remote", "generate", "deadline exceeded", err)
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized,
			statusErr.StatusCode == http.StatusForbidden,
			statusErr.StatusCode == http.StatusNotFound,
			statusErr.StatusCode == http.StatusBadRequest:
			return services.Wrap(services.ErrConfiguration, "remote", "generate", "rejected request", err)
		}
	}
	return services.Wrap(services.ErrBackend, "remote", "generate", "call failed", err)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

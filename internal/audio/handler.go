package audio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"vigil/internal/analysis"
	"vigil/internal/concern"
	"vigil/internal/logging"
	"vigil/internal/queue"
	"vigil/internal/scenario"
	"vigil/internal/services"
	"vigil/internal/stage"
)

// Handler adapts the spectral analyzer to the scheduler's stage contract for
// audio jobs.
type Handler struct {
	analyzer *Analyzer
	logger   *slog.Logger
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithLogger overrides the no-op default.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logging.NewComponentLogger(logger, "audio")
		}
	}
}

// NewHandler wraps an analyzer for scheduler dispatch.
func NewHandler(analyzer *Analyzer, opts ...HandlerOption) *Handler {
	handler := &Handler{
		analyzer: analyzer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Prepare verifies the job carries a decodable sample window.
func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	if job.Kind != queue.KindAudio {
		return services.Wrap(services.ErrValidation, "audio", "prepare",
			fmt.Sprintf("cannot analyze %s job", job.Kind), nil)
	}
	_, err := stage.ParseAudioWindow(job)
	return err
}

// Analyze runs the spectral classification over the job's inline window.
func (h *Handler) Analyze(ctx context.Context, job *queue.Job) (*analysis.Result, error) {
	payload, err := stage.ParseAudioWindow(job)
	if err != nil {
		return nil, err
	}
	sc, ok := scenario.ParseScenario(job.Scenario)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "audio", "analyze",
			fmt.Sprintf("unknown scenario %q", job.Scenario), nil)
	}
	started := time.Now()
	findings, err := h.analyzer.Analyze(payload.Samples, payload.SampleRate, payload.RMS, sc)
	if err != nil {
		return nil, err
	}

	top := concern.LevelNone
	for _, finding := range findings {
		top = concern.Max(top, finding.Concern)
	}
	h.logger.Debug("audio window classified",
		logging.Args(
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("concern", top.String()),
			logging.Int("findings", len(findings)),
			logging.Int("samples", len(payload.Samples)),
			logging.Int("sample_rate", payload.SampleRate),
		)...)

	return &analysis.Result{
		Concern:     top,
		Description: summarizeFindings(findings),
		Path:        analysis.PathAudio,
		Elapsed:     time.Since(started),
		Findings:    findings,
	}, nil
}

// HealthCheck always reports ready; the analyzer is pure computation.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("audio")
}

// summarizeFindings builds the one-line result description.
func summarizeFindings(findings []analysis.Finding) string {
	var detected []string
	for _, finding := range findings {
		if finding.Detected && finding.Event != string(EventSilence) {
			detected = append(detected, fmt.Sprintf("%s (confidence %.2f)", finding.Event, finding.Confidence))
		}
	}
	if len(detected) == 0 {
		return findings[0].Description
	}
	return "detected " + strings.Join(detected, ", ")
}

package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"vigil/internal/analysis"
	"vigil/internal/concern"
	"vigil/internal/config"
	"vigil/internal/inference"
	"vigil/internal/logging"
	"vigil/internal/queue"
	"vigil/internal/scenario"
	"vigil/internal/services"
	"vigil/internal/stage"
)

const (
	defaultTriageTimeout   = 10 * time.Second
	defaultDetailedTimeout = 45 * time.Second
)

// Analyzer runs the tiered frame cascade: a fast local triage pass, a local
// detailed pass when triage flags anything, and an optional remote escalation
// when the two local tiers disagree. It implements stage.Handler for frame
// jobs.
type Analyzer struct {
	local    inference.Backend
	remote   inference.Backend
	profiles *scenario.Set
	logger   *slog.Logger

	triageModel     string
	detailedModel   string
	triageTimeout   time.Duration
	detailedTimeout time.Duration
}

// Option customizes the analyzer.
type Option func(*Analyzer)

// WithRemote installs the remote fallback backend. Without one the cascade
// resolves disagreements from the local tiers alone.
func WithRemote(remote inference.Backend) Option {
	return func(a *Analyzer) {
		a.remote = remote
	}
}

// WithLogger overrides the no-op default.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logging.NewComponentLogger(logger, "vision")
		}
	}
}

// WithTimeouts overrides the per-tier completion deadlines.
func WithTimeouts(triage, detailed time.Duration) Option {
	return func(a *Analyzer) {
		a.triageTimeout = triage
		a.detailedTimeout = detailed
	}
}

// NewAnalyzer builds the cascade from the inference configuration.
func NewAnalyzer(cfg config.Inference, local inference.Backend, profiles *scenario.Set, opts ...Option) *Analyzer {
	analyzer := &Analyzer{
		local:           local,
		profiles:        profiles,
		logger:          logging.NewNop(),
		triageModel:     strings.TrimSpace(cfg.TriageModel),
		detailedModel:   strings.TrimSpace(cfg.DetailedModel),
		triageTimeout:   defaultTriageTimeout,
		detailedTimeout: defaultDetailedTimeout,
	}
	if cfg.TriageTimeoutSeconds > 0 {
		analyzer.triageTimeout = time.Duration(cfg.TriageTimeoutSeconds) * time.Second
	}
	if cfg.DetailedTimeoutSeconds > 0 {
		analyzer.detailedTimeout = time.Duration(cfg.DetailedTimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	return analyzer
}

// Prepare verifies the job carries a readable frame before a worker commits
// to the expensive cascade. A frame that has not landed on disk yet is a
// transient fault; the scheduler's retry budget covers capture lag.
func (a *Analyzer) Prepare(ctx context.Context, job *queue.Job) error {
	if job.Kind != queue.KindFrame {
		return services.Wrap(services.ErrValidation, "vision", "prepare",
			fmt.Sprintf("cannot analyze %s job", job.Kind), nil)
	}
	if strings.TrimSpace(job.FramePath) == "" {
		return services.Wrap(services.ErrValidation, "vision", "prepare", "frame path required", nil)
	}
	if _, err := os.Stat(job.FramePath); err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrTransient, "vision", "prepare", "frame not on disk", err)
		}
		return services.Wrap(services.ErrTransient, "vision", "prepare", "stat frame", err)
	}
	return nil
}

// Analyze runs the cascade. Quality degradation never returns an error;
// error returns are reserved for faults the scheduler should retry or fail
// the job over (unreadable payload, unknown scenario).
func (a *Analyzer) Analyze(ctx context.Context, job *queue.Job) (*analysis.Result, error) {
	profile, ok := a.profiles.Profile(scenario.Scenario(job.Scenario))
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "vision", "analyze",
			fmt.Sprintf("unknown scenario %q", job.Scenario), nil)
	}
	frame, err := os.ReadFile(job.FramePath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "vision", "analyze", "read frame", err)
	}
	imageB64 := base64.StdEncoding.EncodeToString(frame)
	started := time.Now()

	triage := a.generate(ctx, a.triageTimeout, a.triageModel, profile.TriagePrompt, job, imageB64)
	triageConcern := ParseConcern(triage.Text)
	a.logger.Debug("triage pass",
		logging.Args(
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("model", triage.Model),
			logging.String("concern", triageConcern.String()),
			logging.Duration("latency", triage.Latency),
		)...)
	if triageConcern == concern.LevelNone {
		return &analysis.Result{
			Concern:     concern.LevelNone,
			Description: triage.Text,
			Model:       triage.Model,
			Path:        analysis.PathTriage,
			Elapsed:     time.Since(started),
		}, nil
	}

	detailed := a.generate(ctx, a.detailedTimeout, a.detailedModel, profile.DetailedPrompt, job, imageB64)
	detailedConcern := ParseConcern(detailed.Text)
	a.logger.Debug("detailed pass",
		logging.Args(
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("model", detailed.Model),
			logging.String("concern", detailedConcern.String()),
			logging.Duration("latency", detailed.Latency),
		)...)

	switch {
	case detailedConcern != concern.LevelNone:
		return &analysis.Result{
			Concern:     detailedConcern,
			Description: detailed.Text,
			Model:       detailed.Model,
			Path:        analysis.PathDetailed,
			Elapsed:     time.Since(started),
		}, nil
	case triageConcern == concern.LevelLow:
		// Triage saw a mild irregularity the detailed pass could not confirm.
		// Keep low rather than downgrading to none.
		return &analysis.Result{
			Concern:     concern.LevelLow,
			Description: detailed.Text,
			Model:       detailed.Model,
			Path:        analysis.PathDetailed,
			Elapsed:     time.Since(started),
		}, nil
	}

	// The local tiers disagree hard: triage flagged at least medium and the
	// detailed pass saw nothing. Ask the remote model to break the tie.
	if a.remote != nil {
		remote, err := a.remote.Generate(ctx, inference.Request{
			Prompt:    profile.DetailedPrompt,
			ImagePath: job.FramePath,
			ImageB64:  imageB64,
		})
		if err == nil {
			final := concern.Max(ParseConcern(remote.Text), triageConcern)
			return &analysis.Result{
				Concern:      final,
				Description:  remote.Text,
				Model:        remote.Model,
				Path:         analysis.PathFallback,
				UsedFallback: true,
				Elapsed:      time.Since(started),
			}, nil
		}
		a.logger.Warn("remote fallback failed, keeping local result",
			logging.Args(
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(err),
			)...)
	}

	// No remote verdict: carry the triage concern forward with the detailed
	// text as annotation.
	return &analysis.Result{
		Concern:     triageConcern,
		Description: detailed.Text,
		Model:       detailed.Model,
		Path:        analysis.PathDetailed,
		Elapsed:     time.Since(started),
	}, nil
}

// generate runs one local completion under the tier deadline. A failed call
// degrades to ERROR-tagged text the keyword parser grades as low, so a
// backend hiccup never silently skips a tier.
func (a *Analyzer) generate(ctx context.Context, timeout time.Duration, model, prompt string, job *queue.Job, imageB64 string) inference.Response {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := a.local.Generate(callCtx, inference.Request{
		Model:     model,
		Prompt:    prompt,
		ImagePath: job.FramePath,
		ImageB64:  imageB64,
	})
	if err != nil {
		a.logger.Warn("local inference failed",
			logging.Args(
				logging.Int64(logging.FieldJobID, job.ID),
				logging.String("model", model),
				logging.Error(err),
			)...)
		return inference.Response{Text: "ERROR: " + err.Error(), Model: model}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return inference.Response{Text: "ERROR: empty completion", Model: resp.Model, Latency: resp.Latency}
	}
	return resp
}

// liveness is the optional health surface a local backend may expose.
type liveness interface {
	IsRunning(ctx context.Context) bool
	HasModel(ctx context.Context, name string) bool
}

// HealthCheck reports whether the local tiers can serve. The remote fallback
// is optional capacity and never fails the check.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	const name = "vision"
	probe, ok := a.local.(liveness)
	if !ok {
		return stage.Healthy(name)
	}
	if !probe.IsRunning(ctx) {
		return stage.Unhealthy(name, "ollama unreachable")
	}
	if !probe.HasModel(ctx, a.triageModel) {
		return stage.Unhealthy(name, fmt.Sprintf("triage model %q not pulled", a.triageModel))
	}
	if !probe.HasModel(ctx, a.detailedModel) {
		return stage.Unhealthy(name, fmt.Sprintf("detailed model %q not pulled", a.detailedModel))
	}
	return stage.Healthy(name)
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/queue"
	"vigil/internal/services"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}

	r := chi.NewRouter()
	r.Use(srv.requestLogger)

	r.Get("/api/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))

		r.Post("/api/jobs", srv.handleSubmit)
		r.Get("/api/jobs", srv.handleJobs)
		r.Get("/api/jobs/{id}", srv.handleJob)
		r.Get("/api/stats", srv.handleStats)
		r.Get("/api/alerts", srv.handleAlerts)
		r.Post("/api/alerts/{id}/ack", srv.handleAcknowledge)
	})

	srv.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log().Debug("api request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Running: s.daemon.running.Load(),
	})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode submission: %v", err))
		return
	}
	job, err := s.daemon.SubmitJob(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SubmitResponse{
		ID:       job.ID,
		Priority: job.Priority.String(),
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.queueSvc == nil {
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: nil})
		return
	}
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.queueSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.queueSvc == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.queueSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.daemon.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStats(stats))
}

func (s *apiServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	recent := s.daemon.RecentAlerts(limit)
	s.writeJSON(w, http.StatusOK, api.AlertListResponse{Alerts: api.FromAlerts(recent)})
}

func (s *apiServer) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "alert id required")
		return
	}
	if !s.daemon.Acknowledge(id) {
		s.writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.AckResponse{ID: id, Acknowledged: true})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}

package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"vigil/internal/alerts"
	"vigil/internal/audio"
	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/inference"
	"vigil/internal/ipc"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/queue"
	"vigil/internal/scenario"
	"vigil/internal/scheduler"
	"vigil/internal/stage"
	"vigil/internal/vision"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the vigil daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vigil-%s.log", runID))

	var sessionID string
	var debugLogPath string
	if opts.Diagnostic {
		sessionID = uuid.NewString()
		debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath = filepath.Join(debugDir, fmt.Sprintf("vigil-%s.log", runID))
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			if err := ensureCurrentLogPointer(filepath.Join(cfg.Paths.LogDir, "debug"), debugLogPath); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to update debug/%s link: %v\n", logging.LogFileName, err)
			}
		}
		logger = logger.With(logging.String("session_id", sessionID))
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("debug_log_path", debugLogPath),
		)
	}

	logBackendSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "vigil-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "debug"), Pattern: "vigil-*.log", Exclude: []string{debugLogPath}},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, "vigild.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	profiles, err := scenario.NewSet(cfg)
	if err != nil {
		return fmt.Errorf("load scenario profiles: %w", err)
	}

	notifier := notifications.NewService(cfg)
	sched := scheduler.New(cfg, store, logger, notifier, buildHandlers(cfg, profiles, logger))
	alertStore := alerts.NewStore(0)
	dispatcher := alerts.NewDispatcher(alertStore, notifier, logger)

	d, err := daemon.New(cfg, store, logger, sched, dispatcher, alertStore, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := filepath.Join(cfg.Paths.LogDir, "vigild.sock")
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queued jobs"),
		)
	}

	<-signalCtx.Done()
	logger.Info("vigil daemon shutting down")
	return nil
}

func buildHandlers(cfg *config.Config, profiles *scenario.Set, logger *slog.Logger) map[queue.Kind]stage.Handler {
	local := inference.NewOllamaBackend(cfg.Inference.OllamaURL)
	visionOpts := []vision.Option{vision.WithLogger(logger)}
	if cfg.Fallback.Configured() {
		remote := inference.NewRemoteBackend(inference.RemoteConfig{
			APIKey:         cfg.Fallback.APIKey,
			BaseURL:        cfg.Fallback.BaseURL,
			Model:          cfg.Fallback.Model,
			Referer:        cfg.Fallback.Referer,
			Title:          cfg.Fallback.Title,
			TimeoutSeconds: cfg.Fallback.TimeoutSeconds,
		})
		visionOpts = append(visionOpts, vision.WithRemote(remote))
	}

	return map[queue.Kind]stage.Handler{
		queue.KindFrame: vision.NewAnalyzer(cfg.Inference, local, profiles, visionOpts...),
		queue.KindAudio: audio.NewHandler(audio.NewAnalyzer(cfg.Audio), audio.WithLogger(logger)),
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logBackendSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("backend snapshot",
		logging.String(logging.FieldEventType, "backend_snapshot"),
		logging.String("ollama_url", cfg.Inference.OllamaURL),
		logging.String("triage_model", cfg.Inference.TriageModel),
		logging.String("detailed_model", cfg.Inference.DetailedModel),
		logging.Bool("fallback_configured", cfg.Fallback.Configured()),
		logging.String("fallback_model", cfg.Fallback.Model),
		logging.Bool("ntfy_topic_present", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("scenario_profiles", len(cfg.Scenarios)),
	)
}

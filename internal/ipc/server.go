package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"vigil/internal/api"
	"vigil/internal/daemon"
	"vigil/internal/logging"
	"vigil/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Vigil", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun vigil daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.CameraMonitoring = status.CameraMonitoring
	resp.QueueStats = api.QueueCounts(status.Scheduler.Queue)
	resp.PendingByPriority = api.PriorityCounts(status.Scheduler.Queue.PendingByPriority)
	resp.InFlight = status.Scheduler.InFlight
	resp.LastError = status.Scheduler.LastError
	if status.Scheduler.LastJob != nil {
		job := api.FromJob(status.Scheduler.LastJob)
		resp.LastJob = &job
	}
	resp.HandlerHealth = api.HandlerHealthSlice(status.Scheduler.HandlerHealth)
	resp.Checks = api.FromCheckResults(status.Checks)
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	s.log().Debug("job submit requested",
		logging.String(logging.FieldStreamID, req.Submission.StreamID))
	job, err := s.daemon.SubmitJob(s.ctx, req.Submission)
	if err != nil {
		return err
	}
	resp.ID = job.ID
	resp.Priority = job.Priority.String()
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	jobs, err := s.daemon.ListQueue(s.ctx, parseStatuses(req.Statuses))
	if err != nil {
		return err
	}
	resp.Jobs = api.FromJobs(jobs)
	return nil
}

func (s *service) QueueDescribe(req QueueDescribeRequest, resp *QueueDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid job id %d", req.ID)
	}
	job, err := s.daemon.GetJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d not found", req.ID)
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *QueueClearResponse) error {
	s.log().Debug("queue clear requested")
	removed, err := s.daemon.ClearQueue(s.ctx, parseStatuses(req.Statuses))
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("queue cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	s.log().Debug("queue retry requested", logging.Int("job_count", len(req.IDs)))
	updated, err := s.daemon.RetryFailed(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("queue jobs retried",
		logging.String(logging.FieldEventType, "queue_retry"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	stats, err := s.daemon.Stats(s.ctx)
	if err != nil {
		return err
	}
	converted := api.FromStats(stats)
	resp.Counts = converted.Counts
	resp.PendingByPriority = converted.PendingByPriority
	resp.Total = converted.Total
	resp.InFlight = converted.InFlight
	resp.Running = converted.Running
	return nil
}

func (s *service) RecentAlerts(req AlertsRequest, resp *AlertsResponse) error {
	resp.Alerts = api.FromAlerts(s.daemon.RecentAlerts(req.Limit))
	return nil
}

func (s *service) Acknowledge(req AcknowledgeRequest, resp *AcknowledgeResponse) error {
	if strings.TrimSpace(req.ID) == "" {
		return errors.New("acknowledge requires an alert id")
	}
	resp.Acknowledged = s.daemon.Acknowledge(req.ID)
	if resp.Acknowledged {
		s.log().Info("alert acknowledged",
			logging.String(logging.FieldEventType, "alert_acknowledged"),
			logging.String("alert_id", req.ID))
	}
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.Backend = health.Backend
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = append(resp.ColumnsPresent, health.ColumnsPresent...)
	resp.MissingColumns = append(resp.MissingColumns, health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalJobs = health.TotalJobs
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

// parseStatuses drops unknown status strings rather than failing the call so
// older clients keep working after a status is retired.
func parseStatuses(raw []string) []queue.Status {
	statuses := make([]queue.Status, 0, len(raw))
	for _, value := range raw {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	return statuses
}

package ipc

import "vigil/internal/api"

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// Alert mirrors the HTTP API alert DTO.
type Alert = api.Alert

// HandlerHealth describes readiness of an analysis handler.
type HandlerHealth = api.HandlerHealth

// CheckResult describes one preflight check outcome.
type CheckResult = api.CheckResult

// StatusLine is one labeled row in a status display.
type StatusLine = api.StatusLine

// CheckSummary aggregates preflight check readiness.
type CheckSummary = api.CheckSummary

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/scheduler status information.
// SystemChecks and ChecksSummary are filled client-side by daemonctl so the
// snapshot stays useful when the daemon is offline.
type StatusResponse struct {
	Running           bool            `json:"running"`
	QueueStats        map[string]int  `json:"queue_stats"`
	PendingByPriority map[string]int  `json:"pending_by_priority"`
	InFlight          int             `json:"in_flight"`
	LastError         string          `json:"last_error"`
	LastJob           *Job            `json:"last_job"`
	LockPath          string          `json:"lock_path"`
	QueueDBPath       string          `json:"queue_db_path"`
	HandlerHealth     []HandlerHealth `json:"handler_health"`
	Checks            []CheckResult   `json:"checks"`
	CameraMonitoring  bool            `json:"camera_monitoring"`
	PID               int             `json:"pid"`
	SystemChecks      []StatusLine    `json:"system_checks,omitempty"`
	ChecksSummary     *CheckSummary   `json:"checks_summary,omitempty"`
}

// SubmitRequest enqueues one analysis job.
type SubmitRequest struct {
	Submission api.SubmitRequest `json:"submission"`
}

// SubmitResponse reports the enqueued job id and its computed priority.
type SubmitResponse struct {
	ID       int64  `json:"id"`
	Priority string `json:"priority"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueDescribeRequest fetches a single job by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single job.
type QueueDescribeResponse struct {
	Job Job `json:"job"`
}

// QueueClearRequest removes jobs. Empty statuses means all jobs.
type QueueClearRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRetryRequest retries failed jobs. Empty list means all failed jobs.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried jobs.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// StatsRequest fetches queue counters.
type StatsRequest struct{}

// StatsResponse reports queue counters plus scheduler liveness.
type StatsResponse struct {
	Counts            map[string]int `json:"counts"`
	PendingByPriority map[string]int `json:"pending_by_priority"`
	Total             int            `json:"total"`
	InFlight          int            `json:"in_flight"`
	Running           bool           `json:"running"`
}

// AlertsRequest fetches recent alerts, newest first. Limit zero means all
// retained alerts.
type AlertsRequest struct {
	Limit int `json:"limit"`
}

// AlertsResponse contains recent alerts.
type AlertsResponse struct {
	Alerts []Alert `json:"alerts"`
}

// AcknowledgeRequest marks one alert as acknowledged.
type AcknowledgeRequest struct {
	ID string `json:"id"`
}

// AcknowledgeResponse reports whether the alert was found.
type AcknowledgeResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	Backend          string   `json:"backend"`
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

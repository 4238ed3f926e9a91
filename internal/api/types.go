package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes an analysis job in a transport-friendly format.
type Job struct {
	ID           int64           `json:"id"`
	StreamID     string          `json:"streamId"`
	Scenario     string          `json:"scenario"`
	Kind         string          `json:"kind"`
	Trigger      string          `json:"trigger"`
	Priority     string          `json:"priority"`
	Magnitude    float64         `json:"magnitude"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"maxAttempts"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	FramePath    string          `json:"framePath,omitempty"`
	Audio        *AudioSummary   `json:"audio,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	StartedAt    string          `json:"startedAt,omitempty"`
	CompletedAt  string          `json:"completedAt,omitempty"`
}

// AudioSummary condenses an inline audio payload for display.
type AudioSummary struct {
	Samples    int     `json:"samples"`
	SampleRate int     `json:"sampleRate"`
	RMS        float64 `json:"rms"`
}

// Alert describes a recorded alert in a transport-friendly format.
type Alert struct {
	ID           string `json:"id"`
	JobID        int64  `json:"jobId,omitempty"`
	StreamID     string `json:"streamId,omitempty"`
	Scenario     string `json:"scenario,omitempty"`
	Severity     string `json:"severity"`
	Concern      string `json:"concern"`
	Event        string `json:"event,omitempty"`
	Message      string `json:"message"`
	Source       string `json:"source"`
	CreatedAt    string `json:"createdAt,omitempty"`
	Acknowledged bool   `json:"acknowledged"`
}

// SchedulerStatus summarizes scheduler execution state.
type SchedulerStatus struct {
	Running           bool            `json:"running"`
	InFlight          int             `json:"inFlight"`
	QueueStats        map[string]int  `json:"queueStats"`
	PendingByPriority map[string]int  `json:"pendingByPriority,omitempty"`
	LastError         string          `json:"lastError,omitempty"`
	LastJob           *Job            `json:"lastJob,omitempty"`
	HandlerHealth     []HandlerHealth `json:"handlerHealth"`
}

// HandlerHealth mirrors readiness reporting for analysis handlers.
type HandlerHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// CheckResult captures the outcome of one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running          bool            `json:"running"`
	PID              int             `json:"pid"`
	QueueDBPath      string          `json:"queueDbPath"`
	LockFilePath     string          `json:"lockFilePath"`
	CameraMonitoring bool            `json:"cameraMonitoring"`
	Scheduler        SchedulerStatus `json:"scheduler"`
	Checks           []CheckResult   `json:"checks,omitempty"`
}

// StatsResponse provides queue counts plus scheduler liveness.
type StatsResponse struct {
	Counts            map[string]int `json:"counts"`
	PendingByPriority map[string]int `json:"pendingByPriority"`
	Total             int            `json:"total"`
	InFlight          int            `json:"inFlight"`
	Running           bool           `json:"running"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// AlertListResponse wraps a collection of alerts.
type AlertListResponse struct {
	Alerts []Alert `json:"alerts"`
}

// SubmitRequest is the job submission body accepted over HTTP and IPC.
// Exactly one of FramePath or Audio must be set; the payload kind decides
// whether the job runs through the vision cascade or the audio analyzer.
type SubmitRequest struct {
	StreamID  string       `json:"streamId"`
	Scenario  string       `json:"scenario"`
	Trigger   string       `json:"trigger"`
	Magnitude float64      `json:"magnitude"`
	FramePath string       `json:"framePath,omitempty"`
	Audio     *AudioWindow `json:"audio,omitempty"`
}

// AudioWindow carries one sampled audio window inline with a submission.
type AudioWindow struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sampleRate"`
	RMS        float64   `json:"rms"`
}

// SubmitResponse reports the enqueued job id and its computed priority.
type SubmitResponse struct {
	ID       int64  `json:"id"`
	Priority string `json:"priority"`
}

// AckResponse reports the outcome of an alert acknowledgement.
type AckResponse struct {
	ID           string `json:"id"`
	Acknowledged bool   `json:"acknowledged"`
}

// HealthResponse is the liveness payload for the HTTP health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// StatusLine is one labeled row in a status display. Severity is one of
// "ok", "info", "warn", or "error".
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// CheckSummary aggregates preflight check readiness into one line.
type CheckSummary struct {
	Total    int    `json:"total"`
	Passed   int    `json:"passed"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

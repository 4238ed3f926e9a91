package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle of an analysis job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status never transitions again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Priority orders pending work. Higher values are claimed first; within a
// tier jobs are claimed oldest first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

// String returns the lowercase tier name, or the numeric value for
// out-of-range priorities.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// Valid reports whether the priority is one of the four known tiers.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// Shift moves the priority by delta tiers, clamped to [low, urgent].
func (p Priority) Shift(delta int) Priority {
	shifted := Priority(int(p) + delta)
	if shifted < PriorityLow {
		return PriorityLow
	}
	if shifted > PriorityUrgent {
		return PriorityUrgent
	}
	return shifted
}

// ParsePriority converts a tier name into a Priority.
func ParsePriority(value string) (Priority, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for priority, name := range priorityNames {
		if name == normalized {
			return priority, true
		}
	}
	return PriorityNormal, false
}

// Kind selects the handler a job is dispatched to.
type Kind string

const (
	KindFrame Kind = "frame"
	KindAudio Kind = "audio"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case KindFrame, KindAudio:
		return normalized, true
	}
	return "", false
}

// Trigger records why a job was submitted.
type Trigger string

const (
	TriggerMotion    Trigger = "motion"
	TriggerAudio     Trigger = "audio"
	TriggerScheduled Trigger = "scheduled"
)

// ParseTrigger converts a string into a known Trigger.
func ParseTrigger(value string) (Trigger, bool) {
	normalized := Trigger(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case TriggerMotion, TriggerAudio, TriggerScheduled:
		return normalized, true
	}
	return "", false
}

// DefaultMaxAttempts bounds retries when a job does not carry its own limit.
const DefaultMaxAttempts = 3

// Job is one unit of analysis work persisted by the store.
//
// Frame jobs reference their payload through FramePath; audio jobs carry the
// sampled window inline as AudioJSON so a crashed daemon can still analyze it
// after restart. ResultJSON holds the serialized analysis result once the job
// completes.
type Job struct {
	ID            int64
	StreamID      string
	Scenario      string
	Kind          Kind
	Trigger       Trigger
	Priority      Priority
	Magnitude     float64
	FramePath     string
	AudioJSON     string
	Status        Status
	Attempts      int
	MaxAttempts   int
	ErrorMessage  string
	ResultJSON    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	LastHeartbeat *time.Time
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.StartedAt = cloneTime(j.StartedAt)
	cp.CompletedAt = cloneTime(j.CompletedAt)
	cp.LastHeartbeat = cloneTime(j.LastHeartbeat)
	return &cp
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

// CanRetry reports whether the job has retry budget left.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// SetCompleted marks the job terminal-successful with its serialized result.
func (j *Job) SetCompleted(resultJSON string) {
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.ResultJSON = resultJSON
	j.ErrorMessage = ""
	j.CompletedAt = &now
	j.LastHeartbeat = nil
}

// SetFailed marks the job terminal-failed with the given error message.
func (j *Job) SetFailed(message string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	j.LastHeartbeat = nil
}

// SetRequeued returns the job to pending for another attempt, keeping its
// original priority and creation time so it re-enters ahead of later arrivals
// in its tier.
func (j *Job) SetRequeued(message string) {
	j.Status = StatusPending
	j.ErrorMessage = message
	j.StartedAt = nil
	j.LastHeartbeat = nil
}

func validateNew(job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.StreamID) == "" {
		return errors.New("stream id is required")
	}
	if strings.TrimSpace(job.Scenario) == "" {
		return errors.New("scenario is required")
	}
	if _, ok := ParseKind(string(job.Kind)); !ok {
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if _, ok := ParseTrigger(string(job.Trigger)); !ok {
		return fmt.Errorf("unknown trigger %q", job.Trigger)
	}
	if !job.Priority.Valid() {
		return fmt.Errorf("priority %d out of range", job.Priority)
	}
	switch job.Kind {
	case KindFrame:
		if strings.TrimSpace(job.FramePath) == "" {
			return errors.New("frame job requires a frame path")
		}
	case KindAudio:
		if strings.TrimSpace(job.AudioJSON) == "" {
			return errors.New("audio job requires an inline payload")
		}
	}
	return nil
}

// AudioPayload is the inline body of an audio job: one mono PCM window plus
// the RMS measured at capture time.
type AudioPayload struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
	RMS        float64   `json:"rms"`
}

// Encode serializes the payload for storage in Job.AudioJSON.
func (p AudioPayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode audio payload: %w", err)
	}
	return string(data), nil
}

// DecodeAudioPayload parses a Job.AudioJSON value.
func DecodeAudioPayload(raw string) (*AudioPayload, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("audio payload is empty")
	}
	var payload AudioPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return &payload, nil
}

// Stats aggregates job counts by status plus the pending backlog by tier.
type Stats struct {
	Total             int
	Pending           int
	Processing        int
	Completed         int
	Failed            int
	PendingByPriority map[Priority]int
}

// DatabaseHealth captures diagnostic information about the queue backend.
type DatabaseHealth struct {
	Backend          string
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

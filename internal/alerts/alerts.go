package alerts

import (
	"time"

	"github.com/google/uuid"

	"vigil/internal/concern"
)

// Severity ranks how loudly an alert should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityUrgent   Severity = "urgent"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityUrgent:   2,
	SeverityCritical: 3,
}

// Rank returns the severity's position in the escalation order, info=0
// through critical=3. Unknown values rank below info.
func (s Severity) Rank() int {
	rank, ok := severityRanks[s]
	if !ok {
		return -1
	}
	return rank
}

// FromConcern maps a concern level onto an alert severity. A none concern
// produces no alert; every other level maps one to one.
func FromConcern(level concern.Level) (Severity, bool) {
	switch level {
	case concern.LevelLow:
		return SeverityInfo, true
	case concern.LevelMedium:
		return SeverityWarning, true
	case concern.LevelHigh:
		return SeverityUrgent, true
	case concern.LevelCritical:
		return SeverityCritical, true
	}
	return "", false
}

// Source identifies which pipeline produced an alert.
type Source string

const (
	SourceVision Source = "vision"
	SourceAudio  Source = "audio"
	SourceSystem Source = "system"
)

// Alert is one surfaced observation, kept in the recent-history buffer and
// pushed through the notifier.
type Alert struct {
	ID           string        `json:"id"`
	JobID        int64         `json:"job_id"`
	StreamID     string        `json:"stream_id"`
	Scenario     string        `json:"scenario"`
	Severity     Severity      `json:"severity"`
	Concern      concern.Level `json:"concern"`
	Event        string        `json:"event,omitempty"`
	Message      string        `json:"message"`
	Source       Source        `json:"source"`
	CreatedAt    time.Time     `json:"created_at"`
	Acknowledged bool          `json:"acknowledged"`
}

func newAlert(source Source, severity Severity) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// NewSystemAlert builds a daemon-originated alert that is not tied to any
// job, such as a camera appearing or disappearing. The concern level is none
// because nothing was observed in a stream.
func NewSystemAlert(severity Severity, event, message string) Alert {
	alert := newAlert(SourceSystem, severity)
	alert.Concern = concern.LevelNone
	alert.Event = event
	alert.Message = message
	return alert
}

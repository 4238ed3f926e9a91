package stage

import (
	"context"

	"vigil/internal/analysis"
	"vigil/internal/queue"
)

// Handler describes the contract the scheduler needs from each analyzer.
// Prepare validates that the job's payload is actually processable before the
// expensive call; Analyze produces the result the scheduler persists.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Analyze(context.Context, *queue.Job) (*analysis.Result, error)
	HealthCheck(context.Context) Health
}

// Health summarizes the readiness of an analysis handler.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

package logging

import (
	"context"
	"log/slog"

	"vigil/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for queue job identifiers.
	FieldJobID = "job_id"
	// FieldStreamID is the standardized structured logging key for camera/microphone stream identifiers.
	FieldStreamID = "stream_id"
	// FieldScenario is the standardized structured logging key for monitoring scenario names.
	FieldScenario = "scenario"
	// FieldKind is the standardized structured logging key for job kinds (frame, audio).
	FieldKind = "kind"
	// FieldHandler is the standardized structured logging key for the analysis handler processing a job.
	FieldHandler = "handler"
	// FieldRequestID is the standardized structured logging key for per-job correlation identifiers.
	FieldRequestID = "request_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType categorizes log events for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorCode carries the short machine-readable failure class.
	FieldErrorCode = "error_code"
	// FieldErrorHint suggests the next operator action after a failure.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldJobID, id))
	}
	if handler, ok := services.HandlerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldHandler, handler))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

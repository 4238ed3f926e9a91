// Package alerts converts analysis outcomes into operator-facing alerts.
//
// The dispatcher consumes the scheduler's outcome channel and maps each
// outcome to alerts by source: vision results emit one alert when the
// concern rises above none, audio results emit one alert per qualifying
// finding, and terminal job failures emit a system-health alert at warning
// severity. Alerts land in a bounded in-memory store that the status
// surfaces read, and are pushed through the notification service as they
// are recorded.
package alerts

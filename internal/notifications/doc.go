// Package notifications delivers monitoring events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Enumerated event types cover alerts, job failures, camera hotplug, and
// queue milestones so callers emit consistent, user-friendly messages without
// duplicating HTTP glue. Event categories can be suppressed individually from
// the notifications config section.
//
// Extend this package if you need alternative transports; all scheduler and
// daemon code depends only on the simple Service interface.
package notifications

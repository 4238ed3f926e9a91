// Package analysis declares the result types produced by job handlers and
// consumed by persistence and alerting.
//
// A Result is the single outcome of processing one job. Frame jobs produce a
// bare Result describing the cascade's classification; audio jobs attach one
// Finding per detected (or explicitly not-detected) acoustic event. Results
// serialize to JSON for storage on the job record, so fields carry json tags
// and stay backward compatible.
package analysis

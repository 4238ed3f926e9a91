// Package concern defines the shared severity vocabulary used across the
// monitoring pipeline.
//
// Every component that classifies, schedules, or alerts speaks in terms of a
// Level: none, low, medium, high, or critical. The ordering is total and
// fixed, which lets the inference cascade resolve disagreements between model
// tiers with simple comparisons and lets alerting map severity without
// special cases.
//
// This package has no dependencies and must stay that way; it is imported by
// nearly everything else.
package concern

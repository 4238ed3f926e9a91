// Package vision grades camera frames through a tiered inference cascade.
//
// A fast local triage model looks at every frame. Anything it flags goes to a
// larger local model for a detailed read, and when the two local tiers
// disagree on an elevated triage an optional remote backend breaks the tie.
// Model replies are free text; the severity keyword parser turns them into
// concern levels, grading unparseable output as low so a confused model still
// reaches an operator.
package vision

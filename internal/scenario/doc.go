// Package scenario defines the monitoring profiles that shape analysis: what
// the vision tiers are asked, which audio events matter, and how urgent a
// submission starts out.
//
// Profiles ship with built-in defaults per scenario (pet, baby, elderly) and
// accept per-field overrides from configuration. A Set is immutable after
// construction; handlers read profiles concurrently without locking.
package scenario

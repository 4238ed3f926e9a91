// Package config loads, normalizes, and validates Vigil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY for the remote inference fallback. The Config type
// centralizes every knob the daemon and CLI need: queue and frame paths,
// scheduler timing, inference backends, audio thresholds, and per-scenario
// overrides.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

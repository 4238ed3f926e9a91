// Package preflight provides readiness checks for the backends and
// filesystem paths that Vigil depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every result. Failures do
//     not abort startup; the scheduler retries its way through transient
//     backend outages.
//   - The CLI "vigil status" command uses individual check functions
//     (CheckOllamaFromConfig, CheckFallbackFromConfig) to display service
//     health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight

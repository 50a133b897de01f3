// Package preflight provides readiness checks for external services
// and filesystem paths that lectern depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll when it starts and records failures
//     so `lectern status` can surface them.
//   - The CLI "lectern status" command uses the FromConfig helpers to
//     display service health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight

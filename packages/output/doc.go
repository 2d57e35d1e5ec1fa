// Package output presents batch runs.
//
// Progress sinks (both implement event.Sink):
//   - Console: Human-readable colored terminal output
//   - Log: one slog JSON line per event
//
// Report formatters collect per-record outcomes from the same event stream
// and are written once the run ends:
//   - JSON: Machine-readable run report
//   - JUnit: JUnit XML format for CI integration
package output

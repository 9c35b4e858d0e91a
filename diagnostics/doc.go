// Package diagnostics provides contracts.DiagnosticReporter implementations.
//
// Validation-style advice and type inspection (see aspects/dirty) report rule violations as
// diagnostics. The reporters here decide where they go:
//   - Collector: Keeps diagnostics in memory so callers can inspect or fail on them
//   - SlogReporter: Logs each diagnostic at a level matching its severity
//   - SinkReporter: Renders each diagnostic as a line to a contracts.Sink
//   - Fanout: Sends a diagnostic to several reporters
//   - MinSeverity: Drops diagnostics below a threshold
package diagnostics

package diagnostics

import (
	"context"
	"log/slog"

	"github.com/glimte/weave-go/contracts"
)

// SlogReporter logs diagnostics through a slog logger
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter logging through logger
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

// Report implements contracts.DiagnosticReporter
func (r *SlogReporter) Report(code string, severity contracts.Severity, message string, location string) {
	r.logger.Log(context.Background(), Level(severity), message,
		"code", code,
		"severity", severity.String(),
		"location", location,
	)
}

// Level maps a severity to the slog level it is logged at
func Level(severity contracts.Severity) slog.Level {
	switch severity {
	case contracts.SeverityError:
		return slog.LevelError
	case contracts.SeverityWarning:
		return slog.LevelWarn
	case contracts.SeverityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// SinkReporter writes each diagnostic as one line in compiler format
type SinkReporter struct {
	sink contracts.Sink
}

// NewSinkReporter creates a reporter writing to sink
func NewSinkReporter(sink contracts.Sink) *SinkReporter {
	if sink == nil {
		sink = contracts.NopSink
	}
	return &SinkReporter{sink: sink}
}

// Report implements contracts.DiagnosticReporter
func (r *SinkReporter) Report(code string, severity contracts.Severity, message string, location string) {
	r.sink.Write(contracts.Diagnostic{
		Code:     code,
		Severity: severity,
		Message:  message,
		Location: location,
	}.String())
}

// Fanout sends every diagnostic to each of its reporters in order
type Fanout []contracts.DiagnosticReporter

// Report implements contracts.DiagnosticReporter
func (f Fanout) Report(code string, severity contracts.Severity, message string, location string) {
	for _, r := range f {
		if r != nil {
			r.Report(code, severity, message, location)
		}
	}
}

// MinSeverity forwards only diagnostics at or above min
func MinSeverity(reporter contracts.DiagnosticReporter, min contracts.Severity) contracts.DiagnosticReporter {
	return contracts.DiagnosticReporterFunc(func(code string, severity contracts.Severity, message string, location string) {
		if severity >= min {
			reporter.Report(code, severity, message, location)
		}
	})
}

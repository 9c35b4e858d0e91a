package contracts

import "fmt"

// Severity classifies a reported diagnostic
type Severity int

const (
	SeverityHidden Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityHidden:
		return "hidden"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// DiagnosticReporter is the channel validation-style advice reports rule violations to.
// The pipeline itself never reports diagnostics.
type DiagnosticReporter interface {
	Report(code string, severity Severity, message string, location string)
}

// DiagnosticReporterFunc is a function adapter for DiagnosticReporter
type DiagnosticReporterFunc func(code string, severity Severity, message string, location string)

// Report implements DiagnosticReporter
func (f DiagnosticReporterFunc) Report(code string, severity Severity, message string, location string) {
	f(code, severity, message, location)
}

// Diagnostic is a single reported rule violation
type Diagnostic struct {
	Code     string   `json:"code" yaml:"code"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	Location string   `json:"location,omitempty" yaml:"location,omitempty"`
}

// String renders the diagnostic the way compilers do: "location: severity CODE: message"
func (d Diagnostic) String() string {
	if d.Location == "" {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s %s: %s", d.Location, d.Severity, d.Code, d.Message)
}

// DiagnosticDefinition pairs a code and severity with a message format
type DiagnosticDefinition struct {
	Code     string
	Severity Severity
	Format   string
}

// Report formats the definition with args and sends it to reporter
func (d DiagnosticDefinition) Report(reporter DiagnosticReporter, location string, args ...interface{}) {
	if reporter == nil {
		return
	}
	reporter.Report(d.Code, d.Severity, fmt.Sprintf(d.Format, args...), location)
}

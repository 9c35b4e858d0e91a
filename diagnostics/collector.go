package diagnostics

import (
	"sync"

	"github.com/glimte/weave-go/contracts"
)

// Collector records reported diagnostics in memory. It is safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	diagnostics []contracts.Diagnostic
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements contracts.DiagnosticReporter
func (c *Collector) Report(code string, severity contracts.Severity, message string, location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, contracts.Diagnostic{
		Code:     code,
		Severity: severity,
		Message:  message,
		Location: location,
	})
}

// Diagnostics returns a copy of the recorded diagnostics in report order
func (c *Collector) Diagnostics() []contracts.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := make([]contracts.Diagnostic, len(c.diagnostics))
	copy(d, c.diagnostics)
	return d
}

// ByCode returns the recorded diagnostics with the given code
func (c *Collector) ByCode(code string) []contracts.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	var d []contracts.Diagnostic
	for _, diag := range c.diagnostics {
		if diag.Code == code {
			d = append(d, diag)
		}
	}
	return d
}

// HasErrors reports whether any diagnostic has error severity
func (c *Collector) HasErrors() bool {
	return c.Count(contracts.SeverityError) > 0
}

// Count returns the number of diagnostics with the given severity
func (c *Collector) Count(severity contracts.Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, diag := range c.diagnostics {
		if diag.Severity == severity {
			n++
		}
	}
	return n
}

// Reset discards the recorded diagnostics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = nil
}

package interceptors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/glimte/weave-go/contracts"
)

// ArgumentValidator checks invocation arguments and returns the diagnostics it found
type ArgumentValidator interface {
	ValidateArguments(ctx context.Context, inv *Invocation) []contracts.Diagnostic
}

// ArgumentValidatorFunc is a function adapter for ArgumentValidator
type ArgumentValidatorFunc func(ctx context.Context, inv *Invocation) []contracts.Diagnostic

// ValidateArguments implements ArgumentValidator
func (f ArgumentValidatorFunc) ValidateArguments(ctx context.Context, inv *Invocation) []contracts.Diagnostic {
	return f(ctx, inv)
}

// InvalidArgument is the diagnostic code reported by ArgumentRules
const InvalidArgument = "ARG001"

// ArgumentRules validates named arguments with one rule each
type ArgumentRules map[string]func(value interface{}) error

// ValidateArguments implements ArgumentValidator
func (r ArgumentRules) ValidateArguments(ctx context.Context, inv *Invocation) []contracts.Diagnostic {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags []contracts.Diagnostic
	for _, name := range names {
		value, ok := inv.Args().Lookup(name)
		if !ok {
			continue
		}
		if err := r[name](value); err != nil {
			diags = append(diags, contracts.Diagnostic{
				Code:     InvalidArgument,
				Severity: contracts.SeverityError,
				Message:  fmt.Sprintf("argument '%s' is invalid: %v", name, err),
				Location: inv.Operation().FullName() + "." + name,
			})
		}
	}
	return diags
}

// ValidationError is raised when validation reports at least one error diagnostic
type ValidationError struct {
	Operation   string
	Diagnostics []contracts.Diagnostic
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Message
	}
	return fmt.Sprintf("validation of %s failed: %s", e.Operation, strings.Join(msgs, "; "))
}

// ValidationAdvice validates arguments before the call, reporting every diagnostic and
// failing the call when any has error severity
type ValidationAdvice struct {
	validator ArgumentValidator
	reporter  contracts.DiagnosticReporter
}

// NewValidationAdvice creates a new validation advice
func NewValidationAdvice(validator ArgumentValidator, reporter contracts.DiagnosticReporter) *ValidationAdvice {
	return &ValidationAdvice{validator: validator, reporter: reporter}
}

// Before implements BeforeAdvice
func (a *ValidationAdvice) Before(ctx context.Context, inv *Invocation) error {
	diags := a.validator.ValidateArguments(ctx, inv)

	var failed []contracts.Diagnostic
	for _, d := range diags {
		if a.reporter != nil {
			a.reporter.Report(d.Code, d.Severity, d.Message, d.Location)
		}
		if d.Severity == contracts.SeverityError {
			failed = append(failed, d)
		}
	}

	if len(failed) > 0 {
		return &ValidationError{Operation: inv.Operation().FullName(), Diagnostics: failed}
	}
	return nil
}

// Name implements Advice
func (a *ValidationAdvice) Name() string {
	return "ValidationAdvice"
}

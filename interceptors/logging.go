package interceptors

import (
	"context"
	"fmt"
	"strings"

	"github.com/glimte/weave-go/contracts"
)

// ValueFormatter renders an argument or result value into log text
type ValueFormatter func(value interface{}) string

// DefaultFormatter renders values with fmt's %v verb
func DefaultFormatter(value interface{}) string {
	return fmt.Sprintf("%v", value)
}

// LoggingOption configures LoggingAdvice
type LoggingOption func(*LoggingAdvice)

// WithFormatter sets the value formatter
func WithFormatter(formatter ValueFormatter) LoggingOption {
	return func(a *LoggingAdvice) {
		if formatter != nil {
			a.format = formatter
		}
	}
}

// LoggingAdvice describes each call to a sink:
//
//	Foo.Bar(x = {1}, y = {2}) started.
//	Foo.Bar(x = {1}, y = {2}) returned 3.
//	Foo.Bar(x = {1}, y = {2}) failed: boom
//
// Void operations log "succeeded." instead of a return value and Out parameters render as
// "<out>". The signature is rendered again for every line so Ref values show their current
// value.
type LoggingAdvice struct {
	sink   contracts.Sink
	format ValueFormatter
}

// NewLoggingAdvice creates a new logging advice writing to sink
func NewLoggingAdvice(sink contracts.Sink, options ...LoggingOption) *LoggingAdvice {
	if sink == nil {
		sink = contracts.NopSink
	}

	a := &LoggingAdvice{sink: sink, format: DefaultFormatter}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Before implements BeforeAdvice
func (a *LoggingAdvice) Before(ctx context.Context, inv *Invocation) error {
	a.sink.Write(a.Signature(inv) + " started.")
	return nil
}

// After implements AfterAdvice
func (a *LoggingAdvice) After(ctx context.Context, inv *Invocation) error {
	if inv.Operation().Return.Void {
		a.sink.Write(a.Signature(inv) + " succeeded.")
		return nil
	}

	result, _ := inv.Result()
	a.sink.Write(a.Signature(inv) + " returned " + a.format(result) + ".")
	return nil
}

// OnException implements ExceptionAdvice; the error keeps propagating
func (a *LoggingAdvice) OnException(ctx context.Context, inv *Invocation) error {
	a.sink.Write(a.Signature(inv) + " failed: " + inv.Err().Error())
	return nil
}

// Name implements Advice
func (a *LoggingAdvice) Name() string {
	return "LoggingAdvice"
}

// Signature renders "Type.Name(p1 = {v1}, p2 = {v2})" for the invocation
func (a *LoggingAdvice) Signature(inv *Invocation) string {
	return FormatSignature(inv, a.format)
}

// FormatSignature renders the operation name and its current argument values. Arguments
// without a declared parameter are named by position.
func FormatSignature(inv *Invocation, format ValueFormatter) string {
	if format == nil {
		format = DefaultFormatter
	}

	var sb strings.Builder
	sb.WriteString(inv.Operation().FullName())
	sb.WriteString("(")

	args := inv.Args()
	for i := 0; i < args.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}

		param, ok := args.Parameter(i)
		if !ok {
			param = contracts.Parameter{Name: fmt.Sprintf("arg%d", i)}
		}

		if param.IsOut() {
			sb.WriteString(param.Name + " = <out> ")
			continue
		}
		sb.WriteString(param.Name + " = {" + format(args.Get(i)) + "}")
	}

	sb.WriteString(")")
	return sb.String()
}

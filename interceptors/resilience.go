package interceptors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/internal/reliability"
)

// MetricsCollector defines the interface for collecting invocation metrics
type MetricsCollector interface {
	IncrementInvocationCount(operation string)
	RecordDuration(operation string, duration time.Duration)
	IncrementErrorCount(operation string, errorType string)
}

// MetricsAdvice reports every pass through proceed to a collector
type MetricsAdvice struct {
	collector MetricsCollector
}

// NewMetricsAdvice creates a new metrics advice
func NewMetricsAdvice(collector MetricsCollector) *MetricsAdvice {
	return &MetricsAdvice{collector: collector}
}

// Around implements AroundAdvice
func (a *MetricsAdvice) Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
	start := time.Now()
	operation := inv.Operation().FullName()

	a.collector.IncrementInvocationCount(operation)

	result, err := proceed(ctx)
	a.collector.RecordDuration(operation, time.Since(start))

	if err != nil {
		a.collector.IncrementErrorCount(operation, ErrorType(err))
	}

	return result, err
}

// Name implements Advice
func (a *MetricsAdvice) Name() string {
	return "MetricsAdvice"
}

// ErrorType classifies an error for metrics labels
func ErrorType(err error) string {
	var cbErr *reliability.CircuitBreakerError
	switch {
	case contracts.IsContractViolation(err):
		return "contract_violation"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.As(err, &cbErr):
		return "circuit_open"
	default:
		return "operation_error"
	}
}

// CircuitBreakerAdvice stops proceeding while the breaker is open
type CircuitBreakerAdvice struct {
	circuitBreaker *reliability.CircuitBreaker
}

// NewCircuitBreakerAdvice creates a new circuit breaker advice
func NewCircuitBreakerAdvice(circuitBreaker *reliability.CircuitBreaker) *CircuitBreakerAdvice {
	return &CircuitBreakerAdvice{circuitBreaker: circuitBreaker}
}

// Validate implements Validator
func (a *CircuitBreakerAdvice) Validate() error {
	if a.circuitBreaker == nil {
		return errors.New("circuit breaker is required")
	}
	return nil
}

// Around implements AroundAdvice
func (a *CircuitBreakerAdvice) Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
	if err := a.circuitBreaker.Allow(); err != nil {
		return nil, err
	}

	result, err := proceed(ctx)
	if contracts.IsContractViolation(err) {
		// Broken advice says nothing about the health of the operation
		a.circuitBreaker.Record(nil)
		return nil, err
	}
	a.circuitBreaker.Record(err)

	return result, err
}

// Name implements Advice
func (a *CircuitBreakerAdvice) Name() string {
	return "CircuitBreakerAdvice"
}

// PolicyAdvice runs proceed under a policy resolved by kind
type PolicyAdvice struct {
	factory reliability.PolicyFactory
	kind    reliability.PolicyKind
}

// NewPolicyAdvice creates a new policy advice
func NewPolicyAdvice(factory reliability.PolicyFactory, kind reliability.PolicyKind) *PolicyAdvice {
	return &PolicyAdvice{factory: factory, kind: kind}
}

// Validate implements Validator
func (a *PolicyAdvice) Validate() error {
	if a.factory == nil {
		return errors.New("policy factory is required")
	}
	_, err := a.factory.Policy(a.kind)
	return err
}

// Around implements AroundAdvice
func (a *PolicyAdvice) Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
	policy, err := a.factory.Policy(a.kind)
	if err != nil {
		return nil, err
	}

	var result interface{}
	err = policy.Execute(ctx, func(ctx context.Context) error {
		r, err := proceed(ctx)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Name implements Advice
func (a *PolicyAdvice) Name() string {
	return fmt.Sprintf("PolicyAdvice(%s)", a.kind)
}

// DeadlineAdvice proceeds with a context that expires after timeout. The deadline is
// advisory: the operation must observe the context itself, it is never preempted.
type DeadlineAdvice struct {
	timeout time.Duration
}

// NewDeadlineAdvice creates a new deadline advice
func NewDeadlineAdvice(timeout time.Duration) *DeadlineAdvice {
	return &DeadlineAdvice{timeout: timeout}
}

// Validate implements Validator
func (a *DeadlineAdvice) Validate() error {
	if a.timeout <= 0 {
		return fmt.Errorf("deadline must be positive, got %v", a.timeout)
	}
	return nil
}

// Around implements AroundAdvice
func (a *DeadlineAdvice) Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	return proceed(deadlineCtx)
}

// Name implements Advice
func (a *DeadlineAdvice) Name() string {
	return "DeadlineAdvice"
}

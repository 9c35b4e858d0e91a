package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/internal/reliability"
)

// RetryAttemptsKey is the invocation value holding the number of attempts made by RetryAdvice
const RetryAttemptsKey = "retry.attempts"

// RetryOption configures RetryAdvice
type RetryOption func(*RetryAdvice)

// WithRetrySink sets the sink receiving one line per failed attempt
func WithRetrySink(sink contracts.Sink) RetryOption {
	return func(r *RetryAdvice) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithRetryLogger sets the logger for the retry advice
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *RetryAdvice) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetryPolicy sets the policy deciding delays and which errors are retried. Without a
// policy every failure is retried immediately.
func WithRetryPolicy(policy reliability.RetryPolicy) RetryOption {
	return func(r *RetryAdvice) {
		r.policy = policy
	}
}

// RetryAdvice proceeds again after a failure until maxAttempts executions have been made.
// Once attempts are exhausted the error of the last attempt propagates unchanged. The
// attempt count is local to one invocation.
type RetryAdvice struct {
	maxAttempts int
	policy      reliability.RetryPolicy
	sink        contracts.Sink
	logger      *slog.Logger
}

// NewRetryAdvice creates a new retry advice
func NewRetryAdvice(maxAttempts int, options ...RetryOption) *RetryAdvice {
	r := &RetryAdvice{
		maxAttempts: maxAttempts,
		sink:        contracts.NopSink,
		logger:      slog.Default(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// MaxAttempts returns the attempt bound
func (r *RetryAdvice) MaxAttempts() int {
	return r.maxAttempts
}

// Validate implements Validator
func (r *RetryAdvice) Validate() error {
	if r.maxAttempts < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidMaxAttempts, r.maxAttempts)
	}
	return nil
}

// Around implements AroundAdvice
func (r *RetryAdvice) Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
	for attempt := 1; ; attempt++ {
		inv.Set(RetryAttemptsKey, attempt)

		result, err := proceed(ctx)
		if err == nil {
			return result, nil
		}

		if contracts.IsContractViolation(err) || ctx.Err() != nil {
			return nil, err
		}

		if attempt >= r.maxAttempts {
			r.sink.Write(fmt.Sprintf("%s Giving up after %s.", err.Error(), attempts(attempt)))
			r.logger.Error("operation failed, attempts exhausted",
				"operation", inv.Operation().FullName(),
				"invocationId", inv.ID(),
				"attempts", attempt,
				"error", err,
			)
			return nil, err
		}

		shouldRetry, delay := true, time.Duration(0)
		if r.policy != nil {
			shouldRetry, delay = r.policy.ShouldRetry(attempt-1, err)
		}
		if !shouldRetry {
			return nil, err
		}

		r.sink.Write(fmt.Sprintf("%s Retrying (attempt %d of %d).", err.Error(), attempt, r.maxAttempts))
		r.logger.Warn("operation failed, retrying",
			"operation", inv.Operation().FullName(),
			"invocationId", inv.ID(),
			"attempt", attempt,
			"maxAttempts", r.maxAttempts,
			"delay", delay,
			"error", err,
		)

		if waitErr := reliability.Wait(ctx, delay); waitErr != nil {
			return nil, waitErr
		}
	}
}

// Name implements Advice
func (r *RetryAdvice) Name() string {
	return "RetryAdvice"
}

func attempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

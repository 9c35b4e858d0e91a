package reliability

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCircuitHalfOpenLimit = errors.New("circuit breaker: half-open request limit reached")
	ErrUnknownState         = errors.New("circuit breaker: unknown state")
	ErrNonRetryable         = errors.New("retry: error is not retryable")
	ErrUnknownPolicy        = errors.New("policy: unknown policy kind")
)

// CircuitBreakerError represents a circuit breaker rejection with context
type CircuitBreakerError struct {
	Name             string
	State            State
	Failures         int
	FailureThreshold int
	LastFailure      time.Time
	NextRetry        time.Time
}

func (e *CircuitBreakerError) Error() string {
	switch e.State {
	case StateOpen:
		retryIn := time.Until(e.NextRetry).Round(time.Second)
		return fmt.Sprintf("circuit breaker %s open: call blocked (failures=%d/%d, retry in %v)",
			e.Name, e.Failures, e.FailureThreshold, retryIn)
	case StateHalfOpen:
		return fmt.Sprintf("circuit breaker %s half-open: call limited", e.Name)
	default:
		return fmt.Sprintf("circuit breaker %s error in state %v", e.Name, e.State)
	}
}

// Is lets half-open rejections match ErrCircuitHalfOpenLimit
func (e *CircuitBreakerError) Is(target error) bool {
	return target == ErrCircuitHalfOpenLimit && e.State == StateHalfOpen
}

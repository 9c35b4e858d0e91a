package reliability

import (
	"context"
	"fmt"
	"sync"
)

// PolicyKind names a resilience policy an operation can opt into
type PolicyKind string

const (
	PolicyRetry          PolicyKind = "retry"
	PolicyCircuitBreaker PolicyKind = "circuit-breaker"
)

// Policy executes a call under some resilience strategy
type Policy interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// PolicyFunc is a function adapter for Policy
type PolicyFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Execute implements Policy
func (f PolicyFunc) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// RetryPolicyExecutor adapts a RetryPolicy into a Policy
func RetryPolicyExecutor(policy RetryPolicy) Policy {
	return PolicyFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return Retry(ctx, policy, fn)
	})
}

// PolicyFactory resolves policies by kind
type PolicyFactory interface {
	Policy(kind PolicyKind) (Policy, error)
}

// PolicyRegistry is a PolicyFactory backed by a map; safe for concurrent use
type PolicyRegistry struct {
	mu       sync.RWMutex
	policies map[PolicyKind]Policy
}

// NewPolicyRegistry creates a registry with the default retry and circuit breaker policies
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		policies: map[PolicyKind]Policy{
			PolicyRetry:          RetryPolicyExecutor(NewExponentialBackoff(defaultInitialInterval, defaultMaxInterval, 2.0, 5)),
			PolicyCircuitBreaker: NewCircuitBreaker(WithName(string(PolicyCircuitBreaker))),
		},
	}
}

// Register installs or replaces the policy for kind
func (r *PolicyRegistry) Register(kind PolicyKind, policy Policy) *PolicyRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[kind] = policy
	return r
}

// Policy implements PolicyFactory
func (r *PolicyRegistry) Policy(kind PolicyKind) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.policies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, kind)
	}
	return policy, nil
}

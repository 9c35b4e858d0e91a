// Package reliability provides resilience strategies that advice can wrap around an operation.
//
// This package implements:
//   - Retry Policies: Configurable retry strategies (exponential backoff, linear, fixed, immediate)
//   - Circuit Breaker: Stops calling an operation that keeps failing until a cool-down elapses
//   - Policy Registry: Resolves a Policy by PolicyKind so operations can opt into a strategy by name
//
// Errors produced by broken advice (contracts.ErrAdviceContractViolation) and context errors are
// never classified as retryable.
//
// Example usage:
//
//	cb := NewCircuitBreaker(
//	    WithName("Inventory.Reserve"),
//	    WithFailureThreshold(5),
//	    WithTimeout(30 * time.Second),
//	)
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return reserve(ctx)
//	})
package reliability

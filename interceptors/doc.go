// Package interceptors provides a runtime method-interception pipeline.
//
// An operation is composed with an ordered, immutable chain of advice. Each advice adds a
// cross-cutting concern without modifying the operation itself. This package provides:
//   - Advice interfaces (before, around, after, exception) and function adapters
//   - Chain and ChainBuilder for composing advice
//   - Build and BuildAction, binding an operation to a chain
//   - Built-in advice for common concerns
//
// Built-in advice:
//   - LoggingAdvice: Writes "started", "returned"/"succeeded" and "failed" lines to a sink
//   - RetryAdvice: Proceeds again after a failure, up to a bounded number of attempts
//   - CachingAdvice: Answers repeated calls from a cache, short-circuiting the operation
//   - ShortCircuitAdvice: Supplies a substitute result before the operation runs
//   - FallbackAdvice: Suppresses errors with a substitute result
//   - MetricsAdvice: Collects invocation counts, durations and error counts
//   - CircuitBreakerAdvice: Stops calling an operation that keeps failing
//   - PolicyAdvice: Runs the operation under a named resilience policy
//   - ValidationAdvice: Validates arguments and reports diagnostics
//   - DeadlineAdvice: Bounds each call with a context deadline
//
// Example usage:
//
//	op := contracts.NewOperation("Calculator.Add", contracts.Param("x", "int"), contracts.Param("y", "int")).
//		Returning("int")
//
//	chain := interceptors.NewChainBuilder(logger).
//		UseSink(sinks.NewWriterSink(os.Stdout)).
//		WithLogging().
//		WithRetry(3).
//		Build()
//
//	add, err := interceptors.Build(op, func(ctx context.Context, args *interceptors.Arguments) (int, error) {
//		return interceptors.Arg[int](args, 0) + interceptors.Arg[int](args, 1), nil
//	}, chain)
//
//	sum, err := add.Invoke(ctx, 1, 2)
//
// Before advice run in declared order and may short-circuit by setting a result. Around
// advice nest in declared order, the first being outermost, and control whether and how
// often the operation runs. Exception and after advice run in reverse declared order,
// mirroring stack unwinding. Every invocation ends with either a result or an error, never
// both; advice that break this rule cause a contracts.AdviceContractError.
package interceptors

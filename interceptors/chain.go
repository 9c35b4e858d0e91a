package interceptors

import (
	"log/slog"
	"time"

	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/internal/reliability"
	"github.com/glimte/weave-go/sinks"
)

// Chain is an ordered, immutable sequence of advice
type Chain struct {
	advice []Advice
}

// NewChain creates a chain from advice in declared order
func NewChain(advice ...Advice) *Chain {
	a := make([]Advice, 0, len(advice))
	for _, adv := range advice {
		if adv != nil {
			a = append(a, adv)
		}
	}
	return &Chain{advice: a}
}

// Len returns the number of advice in the chain
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.advice)
}

// Advice returns a copy of the advice in declared order
func (c *Chain) Advice() []Advice {
	if c == nil {
		return nil
	}
	a := make([]Advice, len(c.advice))
	copy(a, c.advice)
	return a
}

// Names returns the advice names in declared order
func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.advice))
	for i, adv := range c.advice {
		names[i] = adv.Name()
	}
	return names
}

// ChainBuilder builds a chain from the built-in advice
type ChainBuilder struct {
	advice []Advice
	sink   contracts.Sink
	logger *slog.Logger
}

// NewChainBuilder creates a new builder. Logging and retry advice write to a sink that
// forwards to logger until UseSink is called.
func NewChainBuilder(logger *slog.Logger) *ChainBuilder {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChainBuilder{
		sink:   sinks.NewSlogSink(logger, slog.LevelInfo),
		logger: logger,
	}
}

// UseSink sets the sink used by advice added afterwards
func (b *ChainBuilder) UseSink(sink contracts.Sink) *ChainBuilder {
	if sink != nil {
		b.sink = sink
	}
	return b
}

// WithLogging adds logging advice
func (b *ChainBuilder) WithLogging(options ...LoggingOption) *ChainBuilder {
	b.advice = append(b.advice, NewLoggingAdvice(b.sink, options...))
	return b
}

// WithRetry adds retry advice bounded by maxAttempts
func (b *ChainBuilder) WithRetry(maxAttempts int, options ...RetryOption) *ChainBuilder {
	opts := append([]RetryOption{WithRetrySink(b.sink), WithRetryLogger(b.logger)}, options...)
	b.advice = append(b.advice, NewRetryAdvice(maxAttempts, opts...))
	return b
}

// WithMetrics adds metrics advice
func (b *ChainBuilder) WithMetrics(collector MetricsCollector) *ChainBuilder {
	b.advice = append(b.advice, NewMetricsAdvice(collector))
	return b
}

// WithCircuitBreaker adds circuit breaker advice
func (b *ChainBuilder) WithCircuitBreaker(cb *reliability.CircuitBreaker) *ChainBuilder {
	b.advice = append(b.advice, NewCircuitBreakerAdvice(cb))
	return b
}

// WithPolicy adds advice running the operation under the policy of the given kind
func (b *ChainBuilder) WithPolicy(factory reliability.PolicyFactory, kind reliability.PolicyKind) *ChainBuilder {
	b.advice = append(b.advice, NewPolicyAdvice(factory, kind))
	return b
}

// WithValidation adds argument validation advice
func (b *ChainBuilder) WithValidation(validator ArgumentValidator, reporter contracts.DiagnosticReporter) *ChainBuilder {
	b.advice = append(b.advice, NewValidationAdvice(validator, reporter))
	return b
}

// WithCaching adds caching advice that short-circuits on a cache hit
func (b *ChainBuilder) WithCaching(cache ResultCache) *ChainBuilder {
	b.advice = append(b.advice, NewCachingAdvice(cache))
	return b
}

// WithShortCircuit adds advice that can answer a call without running it
func (b *ChainBuilder) WithShortCircuit(evaluator ShortCircuitEvaluator) *ChainBuilder {
	b.advice = append(b.advice, NewShortCircuitAdvice(evaluator))
	return b
}

// WithDeadline adds advice bounding each proceed with a deadline
func (b *ChainBuilder) WithDeadline(timeout time.Duration) *ChainBuilder {
	b.advice = append(b.advice, NewDeadlineAdvice(timeout))
	return b
}

// WithCustom adds a custom advice
func (b *ChainBuilder) WithCustom(advice Advice) *ChainBuilder {
	b.advice = append(b.advice, advice)
	return b
}

// Build returns the chain; later builder calls do not affect it
func (b *ChainBuilder) Build() *Chain {
	return NewChain(b.advice...)
}

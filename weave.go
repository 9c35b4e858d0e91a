// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package weave wraps operations with advice chains assembled from functional options.
package weave

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/weave-go/config"
	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/interceptors"
	"github.com/glimte/weave-go/internal/reliability"
)

// Wrap builds an interceptor around fn. Advice options are applied in the order given, so
// the first advice option is the outermost.
func Wrap[R any](op *contracts.Operation, fn interceptors.Func[R], options ...Option) (*interceptors.Interceptor[R], error) {
	cfg := newWrapConfig(options)

	interceptor, err := interceptors.Build(op, fn, cfg.chain(), cfg.interceptorOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap operation: %w", err)
	}

	cfg.logger.Debug("Operation wrapped", "operation", op.FullName(), "advice", interceptor.Chain().Names())
	return interceptor, nil
}

// WrapAction builds an interceptor around an operation without a result
func WrapAction(op *contracts.Operation, fn interceptors.ActionFunc, options ...Option) (*interceptors.Action, error) {
	cfg := newWrapConfig(options)

	action, err := interceptors.BuildAction(op, fn, cfg.chain(), cfg.interceptorOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap action: %w", err)
	}

	cfg.logger.Debug("Action wrapped", "operation", op.FullName())
	return action, nil
}

// Chain assembles the advice chain described by options without wrapping anything
func Chain(options ...Option) *interceptors.Chain {
	return newWrapConfig(options).chain()
}

// wrapConfig holds the options of one Wrap call
type wrapConfig struct {
	logger     *slog.Logger
	sink       contracts.Sink
	steps      []func(b *interceptors.ChainBuilder)
	onComplete func(inv *interceptors.Invocation)
}

// Option configures Wrap and WrapAction
type Option func(*wrapConfig)

func newWrapConfig(options []Option) *wrapConfig {
	cfg := &wrapConfig{
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(cfg)
	}

	return cfg
}

func (c *wrapConfig) chain() *interceptors.Chain {
	builder := interceptors.NewChainBuilder(c.logger).UseSink(c.sink)
	for _, step := range c.steps {
		step(builder)
	}
	return builder.Build()
}

func (c *wrapConfig) interceptorOptions() []interceptors.Option {
	opts := []interceptors.Option{interceptors.WithLogger(c.logger)}
	if c.onComplete != nil {
		opts = append(opts, interceptors.WithCompletionHook(c.onComplete))
	}
	return opts
}

// WithLogger sets the logger used by the pipeline and the built-in advice
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *wrapConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSink sets the sink logging and retry advice write to. Without it lines go to the logger.
func WithSink(sink contracts.Sink) Option {
	return func(cfg *wrapConfig) {
		cfg.sink = sink
	}
}

// WithLogging adds logging advice
func WithLogging(options ...interceptors.LoggingOption) Option {
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			b.WithLogging(options...)
		})
	}
}

// WithRetry adds retry advice bounded by maxAttempts
func WithRetry(maxAttempts int, options ...interceptors.RetryOption) Option {
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			b.WithRetry(maxAttempts, options...)
		})
	}
}

// WithCircuitBreaker adds circuit breaker advice. The breaker is shared by every operation
// wrapped with it.
func WithCircuitBreaker(options ...reliability.CircuitBreakerOption) Option {
	cb := reliability.NewCircuitBreaker(options...)
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			b.WithCircuitBreaker(cb)
		})
	}
}

// WithDeadline adds advice bounding each attempt with timeout
func WithDeadline(timeout time.Duration) Option {
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			b.WithDeadline(timeout)
		})
	}
}

// WithValidation adds argument validation reporting to reporter
func WithValidation(validator interceptors.ArgumentValidator, reporter contracts.DiagnosticReporter) Option {
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			b.WithValidation(validator, reporter)
		})
	}
}

// WithCaching adds caching advice
func WithCaching(cache interceptors.ResultCache) Option {
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			b.WithCaching(cache)
		})
	}
}

// WithConfig adds the advice described by a loaded configuration
func WithConfig(c *config.Config) Option {
	return func(cfg *wrapConfig) {
		if c == nil {
			return
		}
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			c.Apply(b)
		})
	}
}

// WithAdvice adds custom advice
func WithAdvice(advice ...interceptors.Advice) Option {
	return func(cfg *wrapConfig) {
		cfg.steps = append(cfg.steps, func(b *interceptors.ChainBuilder) {
			for _, a := range advice {
				b.WithCustom(a)
			}
		})
	}
}

// WithCompletionHook registers a function called with every finished invocation
func WithCompletionHook(fn func(inv *interceptors.Invocation)) Option {
	return func(cfg *wrapConfig) {
		cfg.onComplete = fn
	}
}

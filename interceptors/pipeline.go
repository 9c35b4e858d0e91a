package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/glimte/weave-go/contracts"
)

// Func is a base operation returning R
type Func[R any] func(ctx context.Context, args *Arguments) (R, error)

// ActionFunc is a base operation without a result
type ActionFunc func(ctx context.Context, args *Arguments) error

// Option configures an Interceptor
type Option func(*options)

type options struct {
	logger     *slog.Logger
	onComplete func(inv *Invocation)
}

// WithLogger sets the logger used for pipeline debug output
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCompletionHook registers a function called with every invocation once it is terminal
func WithCompletionHook(fn func(inv *Invocation)) Option {
	return func(o *options) {
		o.onComplete = fn
	}
}

// Interceptor is an operation bound to an advice chain. It is immutable and safe for
// concurrent use as long as the operation and its advice are.
type Interceptor[R any] struct {
	op         *contracts.Operation
	fn         Func[R]
	befores    []BeforeAdvice
	arounds    []AroundAdvice
	afters     []AfterAdvice
	exceptions []ExceptionAdvice
	chain      *Chain
	logger     *slog.Logger
	onComplete func(inv *Invocation)
}

// Build composes chain around fn. An empty or nil chain yields an interceptor that behaves
// exactly like fn. Advice implementing Validator are checked here; nothing runs until Invoke.
func Build[R any](op *contracts.Operation, fn Func[R], chain *Chain, opts ...Option) (*Interceptor[R], error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilFunc, op.FullName())
	}

	cfg := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	i := &Interceptor[R]{
		op:         op,
		fn:         fn,
		chain:      NewChain(chain.Advice()...),
		logger:     cfg.logger,
		onComplete: cfg.onComplete,
	}

	for _, adv := range i.chain.advice {
		if v, ok := adv.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, &contracts.AdviceContractError{
					Advice:    adv.Name(),
					Operation: op.FullName(),
					Reason:    err.Error(),
				}
			}
		}

		before, around, after, exception := capabilitiesOf(adv)
		if before == nil && around == nil && after == nil && exception == nil {
			return nil, &contracts.AdviceContractError{
				Advice:    adv.Name(),
				Operation: op.FullName(),
				Reason:    "advice implements no before, around, after or exception hook",
			}
		}
		if before != nil {
			i.befores = append(i.befores, before)
		}
		if around != nil {
			i.arounds = append(i.arounds, around)
		}
		if after != nil {
			i.afters = append(i.afters, after)
		}
		if exception != nil {
			i.exceptions = append(i.exceptions, exception)
		}
	}

	return i, nil
}

func capabilitiesOf(adv Advice) (BeforeAdvice, AroundAdvice, AfterAdvice, ExceptionAdvice) {
	if f, ok := adv.(*AdviceFuncs); ok {
		return f.capabilities()
	}
	before, _ := adv.(BeforeAdvice)
	around, _ := adv.(AroundAdvice)
	after, _ := adv.(AfterAdvice)
	exception, _ := adv.(ExceptionAdvice)
	return before, around, after, exception
}

// Operation returns the descriptor of the wrapped operation
func (i *Interceptor[R]) Operation() *contracts.Operation {
	return i.op
}

// Chain returns the advice chain the interceptor was built with
func (i *Interceptor[R]) Chain() *Chain {
	return i.chain
}

// Invoke runs the chain with positional argument values
func (i *Interceptor[R]) Invoke(ctx context.Context, values ...interface{}) (R, error) {
	return i.InvokeArgs(ctx, NewArguments(values...))
}

// InvokeArgs runs the chain with caller-owned arguments; Out and Ref values written during
// the call can be read back from args afterwards.
func (i *Interceptor[R]) InvokeArgs(ctx context.Context, args *Arguments) (R, error) {
	var zero R
	if args == nil {
		args = NewArguments()
	}
	if n := len(i.op.Parameters); n > 0 && args.Len() != n {
		return zero, fmt.Errorf("%w: %s expects %d, got %d", contracts.ErrArgumentCount, i.op.FullName(), n, args.Len())
	}

	start := time.Now()
	inv := newInvocation(i.op, args)
	ctx = WithInvocation(ctx, inv)

	result, err := i.run(ctx, inv)

	i.logger.Debug("invocation finished",
		"invocationId", inv.ID(),
		"operation", i.op.FullName(),
		"state", inv.state.String(),
		"attempts", inv.attempts,
		"duration", time.Since(start),
	)
	if i.onComplete != nil {
		i.onComplete(inv)
	}

	return result, err
}

func (i *Interceptor[R]) run(ctx context.Context, inv *Invocation) (R, error) {
	if err := ctx.Err(); err != nil {
		inv.settle(nil, err)
		return i.finish(inv)
	}

	inv.state = BeforeRunning
	for _, b := range i.befores {
		inv.current = b.Name()
		inv.SetError(b.Before(ctx, inv))
		if inv.violation != nil {
			return i.finish(inv)
		}
		if inv.err != nil {
			inv.state = Faulted
			break
		}
		if inv.hasResult {
			inv.state = ShortCircuited
			break
		}
	}
	inv.current = ""

	if inv.state == BeforeRunning {
		inv.state = Invoking
		inv.resultByAdvice = false

		result, err := i.proceedAt(0, inv)(ctx)
		if inv.violation != nil {
			return i.finish(inv)
		}
		inv.settle(result, err)
		if err != nil {
			inv.state = Faulted
		} else {
			inv.state = AroundReturned
		}
	}

	i.post(ctx, inv)
	return i.finish(inv)
}

// proceedAt returns the capability invoking layer level: an around advice or, past the
// last one, the base operation
func (i *Interceptor[R]) proceedAt(level int, inv *Invocation) Proceed {
	return func(ctx context.Context) (interface{}, error) {
		if inv.violation != nil {
			return nil, inv.violation
		}
		if inv.resultByAdvice {
			inv.violate("proceed called after the advice produced a result")
			return nil, inv.violation
		}
		if err := ctx.Err(); err != nil {
			inv.settle(nil, err)
			return nil, err
		}
		inv.clear()

		var (
			result interface{}
			err    error
		)
		if level < len(i.arounds) {
			around := i.arounds[level]
			outer := inv.current
			inv.current = around.Name()

			result, err = around.Around(ctx, inv, i.proceedAt(level+1, inv))
			if err != nil && result != nil {
				inv.violate("around advice returned both a result and an error")
			}

			inv.current = outer
			if inv.violation != nil {
				return nil, inv.violation
			}
		} else {
			inv.attempts++
			var r R
			r, err = i.fn(ctx, inv.args)
			if err == nil {
				result = r
			}
		}

		inv.settle(result, err)
		inv.resultByAdvice = false
		return result, err
	}
}

// post runs exception advice then after advice, both innermost first
func (i *Interceptor[R]) post(ctx context.Context, inv *Invocation) {
	inv.state = PostRunning

	if inv.err != nil {
		for k := len(i.exceptions) - 1; k >= 0; k-- {
			if err := ctx.Err(); err != nil {
				inv.settle(nil, err)
				return
			}

			e := i.exceptions[k]
			inv.current = e.Name()
			inv.SetError(e.OnException(ctx, inv))
			if inv.violation != nil {
				return
			}
			if inv.err == nil {
				break
			}
		}
	}

	if inv.err == nil {
		for k := len(i.afters) - 1; k >= 0; k-- {
			if err := ctx.Err(); err != nil {
				inv.settle(nil, err)
				return
			}

			a := i.afters[k]
			inv.current = a.Name()
			if err := a.After(ctx, inv); err != nil {
				if inv.violation == nil {
					inv.settle(nil, err)
				}
				return
			}
			if inv.violation != nil {
				return
			}
		}
	}
	inv.current = ""
}

func (i *Interceptor[R]) finish(inv *Invocation) (R, error) {
	var zero R

	if inv.violation == nil && inv.err == nil && inv.result != nil {
		typed, ok := inv.result.(R)
		if !ok {
			inv.violate("result of type %T is not assignable to %v", inv.result, reflect.TypeFor[R]())
		} else {
			inv.state = Completed
			return typed, nil
		}
	}

	switch {
	case inv.violation != nil:
		inv.state = Rethrown
		return zero, inv.violation
	case inv.err != nil:
		inv.state = Rethrown
		return zero, inv.err
	default:
		inv.state = Completed
		return zero, nil
	}
}

// Action is an interceptor over an operation without a result
type Action struct {
	inner *Interceptor[struct{}]
}

// BuildAction composes chain around a void operation
func BuildAction(op *contracts.Operation, fn ActionFunc, chain *Chain, opts ...Option) (*Action, error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilFunc, op.FullName())
	}

	void := *op
	void.Return = contracts.ReturnSlot{Void: true}

	inner, err := Build(&void, func(ctx context.Context, args *Arguments) (struct{}, error) {
		return struct{}{}, fn(ctx, args)
	}, chain, opts...)
	if err != nil {
		return nil, err
	}
	return &Action{inner: inner}, nil
}

// Operation returns the descriptor of the wrapped operation
func (a *Action) Operation() *contracts.Operation {
	return a.inner.Operation()
}

// Invoke runs the chain with positional argument values
func (a *Action) Invoke(ctx context.Context, values ...interface{}) error {
	_, err := a.inner.Invoke(ctx, values...)
	return err
}

// InvokeArgs runs the chain with caller-owned arguments
func (a *Action) InvokeArgs(ctx context.Context, args *Arguments) error {
	_, err := a.inner.InvokeArgs(ctx, args)
	return err
}

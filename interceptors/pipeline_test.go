package interceptors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimte/weave-go/contracts"
)

// trace records the order in which advice and operations run
type trace struct {
	mu      sync.Mutex
	entries []string
}

func (tr *trace) add(entry string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entries = append(tr.entries, entry)
}

func (tr *trace) get() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.entries...)
}

func recordingBefore(tr *trace, name string) *BeforeFunc {
	return NewBeforeFunc(name, func(ctx context.Context, inv *Invocation) error {
		tr.add(name)
		return nil
	})
}

func recordingAfter(tr *trace, name string) *AfterFunc {
	return NewAfterFunc(name, func(ctx context.Context, inv *Invocation) error {
		tr.add(name)
		return nil
	})
}

func recordingException(tr *trace, name string) *ExceptionFunc {
	return NewExceptionFunc(name, func(ctx context.Context, inv *Invocation) error {
		tr.add(name)
		return nil
	})
}

func recordingAround(tr *trace, name string) *AroundFunc {
	return NewAroundFunc(name, func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
		tr.add(name + ":in")
		result, err := proceed(ctx)
		tr.add(name + ":out")
		return result, err
	})
}

func addOperation() *contracts.Operation {
	return contracts.NewOperation("Foo.Bar", contracts.Param("x", "int"), contracts.Param("y", "int")).Returning("int")
}

func add(tr *trace) Func[int] {
	return func(ctx context.Context, args *Arguments) (int, error) {
		if tr != nil {
			tr.add("base")
		}
		return Arg[int](args, 0) + Arg[int](args, 1), nil
	}
}

var errBoom = errors.New("boom")

func failing(tr *trace) Func[int] {
	return func(ctx context.Context, args *Arguments) (int, error) {
		if tr != nil {
			tr.add("base")
		}
		return -1, errBoom
	}
}

func TestBuild(t *testing.T) {
	t.Run("requires an operation and a function", func(t *testing.T) {
		_, err := Build[int](nil, add(nil), nil)
		assert.ErrorIs(t, err, ErrNilOperation)

		_, err = Build[int](addOperation(), nil, nil)
		assert.ErrorIs(t, err, ErrNilFunc)
	})

	t.Run("rejects invalid advice at build time", func(t *testing.T) {
		_, err := Build(addOperation(), add(nil), NewChain(NewRetryAdvice(0)))

		require.Error(t, err)
		assert.True(t, contracts.IsContractViolation(err))
		assert.ErrorContains(t, err, "RetryAdvice")
	})

	t.Run("rejects advice without any hook", func(t *testing.T) {
		_, err := Build(addOperation(), add(nil), NewChain(&AdviceFuncs{AdviceName: "empty"}))

		assert.True(t, contracts.IsContractViolation(err))
	})

	t.Run("has no side effects", func(t *testing.T) {
		tr := &trace{}
		_, err := Build(addOperation(), add(tr), NewChain(recordingBefore(tr, "B1"), recordingAround(tr, "R")))

		require.NoError(t, err)
		assert.Empty(t, tr.get())
	})

	t.Run("chain is copied", func(t *testing.T) {
		chain := NewChain(NewLoggingAdvice(nil))
		interceptor, err := Build(addOperation(), add(nil), chain)
		require.NoError(t, err)

		assert.Equal(t, []string{"LoggingAdvice"}, interceptor.Chain().Names())
		assert.Equal(t, "Foo.Bar", interceptor.Operation().FullName())
	})
}

func TestIdentityLaw(t *testing.T) {
	tests := []struct {
		name string
		fn   Func[int]
		args []interface{}
	}{
		{"success", add(nil), []interface{}{1, 2}},
		{"negative", add(nil), []interface{}{-5, 2}},
		{"failure", failing(nil), []interface{}{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, chain := range []*Chain{nil, NewChain()} {
				interceptor, err := Build(addOperation(), tt.fn, chain)
				require.NoError(t, err)

				want, wantErr := tt.fn(context.Background(), NewArguments(tt.args...))
				got, gotErr := interceptor.Invoke(context.Background(), tt.args...)

				if wantErr != nil {
					assert.Same(t, wantErr, gotErr)
					assert.Zero(t, got)
				} else {
					assert.NoError(t, gotErr)
					assert.Equal(t, want, got)
				}
			}
		})
	}
}

func TestOrderingLaw(t *testing.T) {
	tr := &trace{}
	chain := NewChain(
		recordingBefore(tr, "B1"),
		recordingBefore(tr, "B2"),
		recordingAfter(tr, "A1"),
		recordingAfter(tr, "A2"),
	)

	interceptor, err := Build(addOperation(), add(tr), chain)
	require.NoError(t, err)

	result, err := interceptor.Invoke(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, result)
	if diff := cmp.Diff([]string{"B1", "B2", "base", "A2", "A1"}, tr.get()); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
}

func TestExceptionReversal(t *testing.T) {
	tr := &trace{}
	chain := NewChain(
		recordingException(tr, "E1"),
		recordingException(tr, "E2"),
		recordingAfter(tr, "A1"),
	)

	interceptor, err := Build(addOperation(), failing(tr), chain)
	require.NoError(t, err)

	_, err = interceptor.Invoke(context.Background(), 1, 2)

	assert.Same(t, errBoom, err)
	assert.Equal(t, []string{"base", "E2", "E1"}, tr.get())
}

func TestShortCircuit(t *testing.T) {
	tr := &trace{}
	var final *Invocation

	chain := NewChain(
		NewBeforeFunc("B1", func(ctx context.Context, inv *Invocation) error {
			tr.add("B1")
			inv.SetResult(42)
			return nil
		}),
		recordingBefore(tr, "B2"),
		recordingAround(tr, "R"),
		NewAfterFunc("A1", func(ctx context.Context, inv *Invocation) error {
			result, _ := inv.Result()
			tr.add(fmt.Sprintf("A1:%v", result))
			return nil
		}),
	)

	interceptor, err := Build(addOperation(), add(tr), chain, WithCompletionHook(func(inv *Invocation) {
		final = inv
	}))
	require.NoError(t, err)

	result, err := interceptor.Invoke(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, []string{"B1", "A1:42"}, tr.get())
	require.NotNil(t, final)
	assert.Equal(t, Completed, final.State())
	assert.Equal(t, 0, final.Attempts())
}

func TestBeforeFault(t *testing.T) {
	tr := &trace{}
	denied := errors.New("denied")

	chain := NewChain(
		NewBeforeFunc("guard", func(ctx context.Context, inv *Invocation) error {
			return denied
		}),
		recordingBefore(tr, "B2"),
		recordingException(tr, "E1"),
		recordingAfter(tr, "A1"),
	)

	interceptor, err := Build(addOperation(), add(tr), chain)
	require.NoError(t, err)

	_, err = interceptor.Invoke(context.Background(), 1, 2)

	assert.Same(t, denied, err)
	assert.Equal(t, []string{"E1"}, tr.get())
}

func TestExceptionAdvice(t *testing.T) {
	t.Run("suppresses with a substitute result and runs after advice", func(t *testing.T) {
		tr := &trace{}
		chain := NewChain(
			recordingAfter(tr, "A1"),
			recordingException(tr, "E1"),
			NewExceptionFunc("E2", func(ctx context.Context, inv *Invocation) error {
				tr.add("E2")
				inv.Recover(0)
				return nil
			}),
		)

		interceptor, err := Build(addOperation(), failing(tr), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 0, result)
		// E1 never sees the suppressed error
		assert.Equal(t, []string{"base", "E2", "A1"}, tr.get())
	})

	t.Run("rewraps by returning a new error", func(t *testing.T) {
		chain := NewChain(NewExceptionFunc("wrap", func(ctx context.Context, inv *Invocation) error {
			return fmt.Errorf("Foo.Bar: %w", inv.Err())
		}))

		interceptor, err := Build(addOperation(), failing(nil), chain)
		require.NoError(t, err)

		_, err = interceptor.Invoke(context.Background(), 1, 2)

		assert.ErrorIs(t, err, errBoom)
		assert.EqualError(t, err, "Foo.Bar: boom")
	})

	t.Run("outer advice observes the rewrapped error", func(t *testing.T) {
		var seen error
		chain := NewChain(
			NewExceptionFunc("outer", func(ctx context.Context, inv *Invocation) error {
				seen = inv.Err()
				return nil
			}),
			NewExceptionFunc("inner", func(ctx context.Context, inv *Invocation) error {
				inv.SetError(fmt.Errorf("inner: %w", inv.Err()))
				return nil
			}),
		)

		interceptor, err := Build(addOperation(), failing(nil), chain)
		require.NoError(t, err)

		_, err = interceptor.Invoke(context.Background(), 1, 2)

		assert.EqualError(t, seen, "inner: boom")
		assert.Equal(t, seen, err)
	})
}

func TestAfterAdvice(t *testing.T) {
	t.Run("replaces the result", func(t *testing.T) {
		chain := NewChain(NewAfterFunc("double", func(ctx context.Context, inv *Invocation) error {
			result, _ := inv.Result()
			inv.SetResult(result.(int) * 2)
			return nil
		}))

		interceptor, err := Build(addOperation(), add(nil), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 6, result)
	})

	t.Run("returned error becomes the outcome and stops remaining after advice", func(t *testing.T) {
		tr := &trace{}
		rejected := errors.New("rejected")
		chain := NewChain(
			recordingAfter(tr, "A1"),
			NewAfterFunc("A2", func(ctx context.Context, inv *Invocation) error {
				tr.add("A2")
				return rejected
			}),
		)

		interceptor, err := Build(addOperation(), add(nil), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2)

		assert.Same(t, rejected, err)
		assert.Zero(t, result)
		assert.Equal(t, []string{"A2"}, tr.get())
	})
}

func TestAroundAdvice(t *testing.T) {
	t.Run("nested around advice wrap in declared order", func(t *testing.T) {
		tr := &trace{}
		chain := NewChain(recordingAround(tr, "outer"), recordingAround(tr, "inner"))

		interceptor, err := Build(addOperation(), add(tr), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 3, result)
		assert.Equal(t, []string{"outer:in", "inner:in", "base", "inner:out", "outer:out"}, tr.get())
	})

	t.Run("not calling proceed skips the operation", func(t *testing.T) {
		tr := &trace{}
		chain := NewChain(NewAroundFunc("stub", func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
			return 99, nil
		}))

		interceptor, err := Build(addOperation(), add(tr), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 99, result)
		assert.Empty(t, tr.get())
	})

	t.Run("calling proceed twice runs the operation twice", func(t *testing.T) {
		var final *Invocation
		chain := NewChain(NewAroundFunc("twice", func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
			if _, err := proceed(ctx); err != nil {
				return nil, err
			}
			return proceed(ctx)
		}))

		interceptor, err := Build(addOperation(), add(nil), chain, WithCompletionHook(func(inv *Invocation) {
			final = inv
		}))
		require.NoError(t, err)

		_, err = interceptor.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 2, final.Attempts())
	})

	t.Run("can substitute a result after a failure", func(t *testing.T) {
		chain := NewChain(NewAroundFunc("fallback", func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
			if _, err := proceed(ctx); err != nil {
				return 7, nil
			}
			return nil, errors.New("unexpected success")
		}))

		interceptor, err := Build(addOperation(), failing(nil), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 7, result)
	})
}

func TestAdviceContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		fn     Func[int]
		advice Advice
	}{
		{
			name: "before sets both result and error",
			fn:   add(nil),
			advice: NewBeforeFunc("both", func(ctx context.Context, inv *Invocation) error {
				inv.SetResult(1)
				inv.SetError(errBoom)
				return nil
			}),
		},
		{
			name: "before sets a result and returns an error",
			fn:   add(nil),
			advice: NewBeforeFunc("both", func(ctx context.Context, inv *Invocation) error {
				inv.SetResult(1)
				return errBoom
			}),
		},
		{
			name: "after sets an error while a result is present",
			fn:   add(nil),
			advice: NewAfterFunc("both", func(ctx context.Context, inv *Invocation) error {
				inv.SetError(errBoom)
				return nil
			}),
		},
		{
			name: "exception advice sets a result without recovering",
			fn:   failing(nil),
			advice: NewExceptionFunc("both", func(ctx context.Context, inv *Invocation) error {
				inv.SetResult(1)
				return nil
			}),
		},
		{
			name: "exception advice recovers and returns an error",
			fn:   failing(nil),
			advice: NewExceptionFunc("both", func(ctx context.Context, inv *Invocation) error {
				inv.Recover(1)
				return errors.New("still failing")
			}),
		},
		{
			name: "around returns both a result and an error",
			fn:   add(nil),
			advice: NewAroundFunc("both", func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
				return 1, errBoom
			}),
		},
		{
			name: "around proceeds after producing a result",
			fn:   add(nil),
			advice: NewAroundFunc("late", func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
				inv.SetResult(1)
				return proceed(ctx)
			}),
		},
		{
			name: "result of the wrong type",
			fn:   add(nil),
			advice: NewAfterFunc("string", func(ctx context.Context, inv *Invocation) error {
				inv.SetResult("three")
				return nil
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var final *Invocation
			exceptionSeen := false
			chain := NewChain(
				NewExceptionFunc("observer", func(ctx context.Context, inv *Invocation) error {
					if contracts.IsContractViolation(inv.Err()) {
						exceptionSeen = true
					}
					return nil
				}),
				tt.advice,
			)

			interceptor, err := Build(addOperation(), tt.fn, chain, WithCompletionHook(func(inv *Invocation) {
				final = inv
			}))
			require.NoError(t, err)

			result, err := interceptor.Invoke(context.Background(), 1, 2)

			var contractErr *contracts.AdviceContractError
			require.ErrorAs(t, err, &contractErr)
			assert.Equal(t, "Foo.Bar", contractErr.Operation)
			assert.Zero(t, result)
			assert.False(t, exceptionSeen, "contract violations never reach exception advice")
			assert.Equal(t, Rethrown, final.State())
		})
	}
}

func TestRetryNeverRetriesContractViolations(t *testing.T) {
	chain := NewChain(
		NewRetryAdvice(5),
		NewAroundFunc("both", func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
			_, _ = proceed(ctx)
			return 1, errBoom
		}),
	)

	var final *Invocation
	interceptor, err := Build(addOperation(), add(nil), chain, WithCompletionHook(func(inv *Invocation) {
		final = inv
	}))
	require.NoError(t, err)

	_, err = interceptor.Invoke(context.Background(), 1, 2)

	assert.True(t, contracts.IsContractViolation(err))
	assert.Equal(t, 1, final.Attempts())
}

func TestCancellation(t *testing.T) {
	t.Run("cancelled before start runs nothing", func(t *testing.T) {
		tr := &trace{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		interceptor, err := Build(addOperation(), add(tr), NewChain(recordingBefore(tr, "B1")))
		require.NoError(t, err)

		_, err = interceptor.Invoke(ctx, 1, 2)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, tr.get())
	})

	t.Run("cancelled before proceed skips the operation", func(t *testing.T) {
		tr := &trace{}
		ctx, cancel := context.WithCancel(context.Background())

		chain := NewChain(
			NewBeforeFunc("cancel", func(ctx context.Context, inv *Invocation) error {
				cancel()
				return nil
			}),
		)

		interceptor, err := Build(addOperation(), add(tr), chain)
		require.NoError(t, err)

		_, err = interceptor.Invoke(ctx, 1, 2)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, tr.get())
	})

	t.Run("in-flight operation completes before post advice observe cancellation", func(t *testing.T) {
		tr := &trace{}
		ctx, cancel := context.WithCancel(context.Background())

		fn := func(ctx context.Context, args *Arguments) (int, error) {
			cancel()
			tr.add("base")
			return 3, nil
		}

		interceptor, err := Build(addOperation(), fn, NewChain(recordingAfter(tr, "A1")))
		require.NoError(t, err)

		_, err = interceptor.Invoke(ctx, 1, 2)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"base"}, tr.get())
	})
}

func TestArguments(t *testing.T) {
	t.Run("argument count must match declared parameters", func(t *testing.T) {
		interceptor, err := Build(addOperation(), add(nil), nil)
		require.NoError(t, err)

		_, err = interceptor.Invoke(context.Background(), 1)

		assert.ErrorIs(t, err, contracts.ErrArgumentCount)
	})

	t.Run("undeclared parameters accept any arguments", func(t *testing.T) {
		op := contracts.NewOperation("sum").Returning("int")
		interceptor, err := Build(op, func(ctx context.Context, args *Arguments) (int, error) {
			total := 0
			for _, v := range args.Values() {
				total += v.(int)
			}
			return total, nil
		}, nil)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), 1, 2, 3)

		require.NoError(t, err)
		assert.Equal(t, 6, result)
	})

	t.Run("out and ref values are visible to the caller and post advice", func(t *testing.T) {
		op := contracts.NewOperation("Math.DivRem",
			contracts.Param("a", "int"),
			contracts.Param("b", "int"),
			contracts.OutParam("rem", "int"),
		).Returning("int")

		var seen interface{}
		chain := NewChain(NewAfterFunc("observe", func(ctx context.Context, inv *Invocation) error {
			seen, _ = inv.Args().Lookup("rem")
			return nil
		}))

		interceptor, err := Build(op, func(ctx context.Context, args *Arguments) (int, error) {
			a, b := Arg[int](args, 0), Arg[int](args, 1)
			args.SetNamed("rem", a%b)
			return a / b, nil
		}, chain)
		require.NoError(t, err)

		args := NewArguments(7, 2, nil)
		quotient, err := interceptor.InvokeArgs(context.Background(), args)

		require.NoError(t, err)
		assert.Equal(t, 3, quotient)
		assert.Equal(t, 1, args.Get(2))
		assert.Equal(t, 1, seen)
	})

	t.Run("before advice can rewrite arguments", func(t *testing.T) {
		chain := NewChain(NewBeforeFunc("clamp", func(ctx context.Context, inv *Invocation) error {
			if Arg[int](inv.Args(), 0) < 0 {
				inv.Args().Set(0, 0)
			}
			return nil
		}))

		interceptor, err := Build(addOperation(), add(nil), chain)
		require.NoError(t, err)

		result, err := interceptor.Invoke(context.Background(), -10, 2)

		require.NoError(t, err)
		assert.Equal(t, 2, result)
	})
}

func TestInvocationContext(t *testing.T) {
	var (
		fromContext string
		fromHook    string
	)

	fn := func(ctx context.Context, args *Arguments) (int, error) {
		fromContext = InvocationID(ctx)
		return 0, nil
	}

	interceptor, err := Build(addOperation(), fn, nil, WithCompletionHook(func(inv *Invocation) {
		fromHook = inv.ID()
	}))
	require.NoError(t, err)

	_, err = interceptor.Invoke(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.NotEmpty(t, fromContext)
	assert.Equal(t, fromHook, fromContext)
	assert.Equal(t, "", InvocationID(context.Background()))

	first := fromContext
	_, err = interceptor.Invoke(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first, fromContext, "every invocation gets a fresh id")
}

func TestInvocationValues(t *testing.T) {
	chain := NewChain(
		NewBeforeFunc("stamp", func(ctx context.Context, inv *Invocation) error {
			inv.Set("tenant", "acme")
			return nil
		}),
		NewAfterFunc("read", func(ctx context.Context, inv *Invocation) error {
			tenant, ok := inv.Get("tenant")
			if !ok || tenant != "acme" {
				return errors.New("tenant missing")
			}
			return nil
		}),
	)

	interceptor, err := Build(addOperation(), add(nil), chain)
	require.NoError(t, err)

	_, err = interceptor.Invoke(context.Background(), 1, 2)
	assert.NoError(t, err)
}

func TestAction(t *testing.T) {
	tr := &trace{}
	op := contracts.NewOperation("Cache.Flush").Returning("int")

	action, err := BuildAction(op, func(ctx context.Context, args *Arguments) error {
		tr.add("flush")
		return nil
	}, NewChain(recordingAfter(tr, "A1")))
	require.NoError(t, err)

	assert.NoError(t, action.Invoke(context.Background()))
	assert.True(t, action.Operation().Return.Void)
	assert.False(t, op.Return.Void, "caller's descriptor is not modified")
	assert.Equal(t, []string{"flush", "A1"}, tr.get())

	failingAction, err := BuildAction(op, func(ctx context.Context, args *Arguments) error {
		return errBoom
	}, nil)
	require.NoError(t, err)
	assert.Same(t, errBoom, failingAction.InvokeArgs(context.Background(), nil))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "short-circuited", ShortCircuited.String())
	assert.True(t, Completed.Terminal())
	assert.True(t, Rethrown.Terminal())
	assert.False(t, PostRunning.Terminal())
}

package dirty

import (
	"context"
	"reflect"
	"sync"

	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/interceptors"
)

// State is the modification state of a tracked object
type State int

const (
	// Untracked objects have not been marked clean yet; writes leave them untracked
	Untracked State = iota
	Clean
	Dirty
)

func (s State) String() string {
	switch s {
	case Untracked:
		return "untracked"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Target is an object whose modification state can be read and written
type Target interface {
	DirtyState() State
	SetDirtyState(state State)
}

// Tracker implements Target and is meant to be embedded. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	state State
}

// DirtyState implements Target
func (t *Tracker) DirtyState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetDirtyState implements Target
func (t *Tracker) SetDirtyState(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// MarkClean starts tracking: the next write makes the object dirty
func (t *Tracker) MarkClean() {
	t.SetDirtyState(Clean)
}

// markDirty flips Clean to Dirty in one step
func markDirty(target Target) {
	if t, ok := target.(*Tracker); ok {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.state == Clean {
			t.state = Dirty
		}
		return
	}
	if target.DirtyState() == Clean {
		target.SetDirtyState(Dirty)
	}
}

// Advice marks its target dirty after every write that succeeded. Failed writes leave the
// state unchanged.
type Advice struct {
	target Target
}

// NewAdvice creates a new dirty-tracking advice for target
func NewAdvice(target Target) *Advice {
	return &Advice{target: target}
}

// Validate implements interceptors.Validator
func (a *Advice) Validate() error {
	if a.target == nil {
		return ErrNilTarget
	}
	return nil
}

// After implements interceptors.AfterAdvice
func (a *Advice) After(ctx context.Context, inv *interceptors.Invocation) error {
	markDirty(a.target)
	return nil
}

// Name implements interceptors.Advice
func (a *Advice) Name() string {
	return "DirtyAdvice"
}

// Setter wraps set as an intercepted write of field on target. The returned function runs
// chain around set with the dirty-tracking advice innermost.
func Setter[T any](target Target, field string, set func(ctx context.Context, value T) error, chain *interceptors.Chain, opts ...interceptors.Option) (func(ctx context.Context, value T) error, error) {
	if target == nil {
		return nil, ErrNilTarget
	}

	op := contracts.NewOperation(typeName(reflect.TypeOf(target))+".Set"+field,
		contracts.Param("value", reflect.TypeFor[T]().String()),
	).ReturningVoid()

	advice := append(chain.Advice(), NewAdvice(target))
	action, err := interceptors.BuildAction(op, func(ctx context.Context, args *interceptors.Arguments) error {
		return set(ctx, interceptors.Arg[T](args, 0))
	}, interceptors.NewChain(advice...), opts...)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, value T) error {
		return action.Invoke(ctx, value)
	}, nil
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

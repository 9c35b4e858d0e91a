package interceptors

import "context"

// Advice is a unit of cross-cutting behavior attached to an operation. An advice takes part
// in the pipeline through one or more of BeforeAdvice, AroundAdvice, AfterAdvice and
// ExceptionAdvice.
type Advice interface {
	// Name returns the advice name for logging and debugging
	Name() string
}

// BeforeAdvice runs before the operation in declared order. It may short-circuit the call by
// setting a result on the invocation. A returned error faults the invocation.
type BeforeAdvice interface {
	Advice
	Before(ctx context.Context, inv *Invocation) error
}

// Proceed invokes the next layer inward: the next around advice or the base operation
type Proceed func(ctx context.Context) (interface{}, error)

// AroundAdvice wraps the call. Around advice nest in declared order, the first being the
// outermost. Calling proceed zero times skips the operation; calling it again re-executes it.
type AroundAdvice interface {
	Advice
	Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error)
}

// AfterAdvice runs in reverse declared order once the call has succeeded and may replace the
// result. A returned error becomes the outcome.
type AfterAdvice interface {
	Advice
	After(ctx context.Context, inv *Invocation) error
}

// ExceptionAdvice runs in reverse declared order while an error is pending. It may call
// Recover to suppress the error, return a non-nil error to replace it, or return nil to let
// it propagate.
type ExceptionAdvice interface {
	Advice
	OnException(ctx context.Context, inv *Invocation) error
}

// Validator is implemented by advice whose configuration can be checked at build time
type Validator interface {
	Validate() error
}

// AdviceFuncs is a function-based advice; nil hooks are skipped
type AdviceFuncs struct {
	AdviceName  string
	BeforeFn    func(ctx context.Context, inv *Invocation) error
	AroundFn    func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error)
	AfterFn     func(ctx context.Context, inv *Invocation) error
	ExceptionFn func(ctx context.Context, inv *Invocation) error
}

// Name implements Advice
func (a *AdviceFuncs) Name() string {
	return a.AdviceName
}

// capabilities resolves the hooks of a function-based advice
func (a *AdviceFuncs) capabilities() (BeforeAdvice, AroundAdvice, AfterAdvice, ExceptionAdvice) {
	var (
		before    BeforeAdvice
		around    AroundAdvice
		after     AfterAdvice
		exception ExceptionAdvice
	)
	if a.BeforeFn != nil {
		before = NewBeforeFunc(a.AdviceName, a.BeforeFn)
	}
	if a.AroundFn != nil {
		around = NewAroundFunc(a.AdviceName, a.AroundFn)
	}
	if a.AfterFn != nil {
		after = NewAfterFunc(a.AdviceName, a.AfterFn)
	}
	if a.ExceptionFn != nil {
		exception = NewExceptionFunc(a.AdviceName, a.ExceptionFn)
	}
	return before, around, after, exception
}

// BeforeFunc is a function adapter for BeforeAdvice
type BeforeFunc struct {
	name string
	fn   func(ctx context.Context, inv *Invocation) error
}

// NewBeforeFunc creates a new function-based before advice
func NewBeforeFunc(name string, fn func(ctx context.Context, inv *Invocation) error) *BeforeFunc {
	return &BeforeFunc{name: name, fn: fn}
}

// Before implements BeforeAdvice
func (b *BeforeFunc) Before(ctx context.Context, inv *Invocation) error {
	return b.fn(ctx, inv)
}

// Name implements Advice
func (b *BeforeFunc) Name() string {
	return b.name
}

// AroundFunc is a function adapter for AroundAdvice
type AroundFunc struct {
	name string
	fn   func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error)
}

// NewAroundFunc creates a new function-based around advice
func NewAroundFunc(name string, fn func(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error)) *AroundFunc {
	return &AroundFunc{name: name, fn: fn}
}

// Around implements AroundAdvice
func (a *AroundFunc) Around(ctx context.Context, inv *Invocation, proceed Proceed) (interface{}, error) {
	return a.fn(ctx, inv, proceed)
}

// Name implements Advice
func (a *AroundFunc) Name() string {
	return a.name
}

// AfterFunc is a function adapter for AfterAdvice
type AfterFunc struct {
	name string
	fn   func(ctx context.Context, inv *Invocation) error
}

// NewAfterFunc creates a new function-based after advice
func NewAfterFunc(name string, fn func(ctx context.Context, inv *Invocation) error) *AfterFunc {
	return &AfterFunc{name: name, fn: fn}
}

// After implements AfterAdvice
func (a *AfterFunc) After(ctx context.Context, inv *Invocation) error {
	return a.fn(ctx, inv)
}

// Name implements Advice
func (a *AfterFunc) Name() string {
	return a.name
}

// ExceptionFunc is a function adapter for ExceptionAdvice
type ExceptionFunc struct {
	name string
	fn   func(ctx context.Context, inv *Invocation) error
}

// NewExceptionFunc creates a new function-based exception advice
func NewExceptionFunc(name string, fn func(ctx context.Context, inv *Invocation) error) *ExceptionFunc {
	return &ExceptionFunc{name: name, fn: fn}
}

// OnException implements ExceptionAdvice
func (e *ExceptionFunc) OnException(ctx context.Context, inv *Invocation) error {
	return e.fn(ctx, inv)
}

// Name implements Advice
func (e *ExceptionFunc) Name() string {
	return e.name
}

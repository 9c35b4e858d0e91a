package interceptors

import (
	"fmt"

	"github.com/glimte/weave-go/contracts"
	"github.com/google/uuid"
)

// State is the position of an invocation in the pipeline
type State int

const (
	NotStarted State = iota
	BeforeRunning
	ShortCircuited
	Invoking
	AroundReturned
	Faulted
	PostRunning
	Completed
	Rethrown
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case BeforeRunning:
		return "before-running"
	case ShortCircuited:
		return "short-circuited"
	case Invoking:
		return "invoking"
	case AroundReturned:
		return "around-returned"
	case Faulted:
		return "faulted"
	case PostRunning:
		return "post-running"
	case Completed:
		return "completed"
	case Rethrown:
		return "rethrown"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends an invocation
func (s State) Terminal() bool {
	return s == Completed || s == Rethrown
}

// Arguments holds the argument values of one invocation. The base operation and every
// advice share the same instance, so Out and Ref writes are visible to post-advice.
type Arguments struct {
	params []contracts.Parameter
	values []interface{}
}

// NewArguments creates arguments from positional values
func NewArguments(values ...interface{}) *Arguments {
	v := make([]interface{}, len(values))
	copy(v, values)
	return &Arguments{values: v}
}

// Len returns the number of arguments
func (a *Arguments) Len() int {
	return len(a.values)
}

// Get returns the value at position i
func (a *Arguments) Get(i int) interface{} {
	return a.values[i]
}

// Set replaces the value at position i
func (a *Arguments) Set(i int, value interface{}) {
	a.values[i] = value
}

// Lookup returns the value of the named parameter
func (a *Arguments) Lookup(name string) (interface{}, bool) {
	for i, p := range a.params {
		if p.Name == name && i < len(a.values) {
			return a.values[i], true
		}
	}
	return nil, false
}

// SetNamed replaces the value of the named parameter
func (a *Arguments) SetNamed(name string, value interface{}) bool {
	for i, p := range a.params {
		if p.Name == name && i < len(a.values) {
			a.values[i] = value
			return true
		}
	}
	return false
}

// Parameter returns the declared parameter at position i, if the operation declares one
func (a *Arguments) Parameter(i int) (contracts.Parameter, bool) {
	if i < 0 || i >= len(a.params) {
		return contracts.Parameter{}, false
	}
	return a.params[i], true
}

// Values returns a copy of the argument values
func (a *Arguments) Values() []interface{} {
	v := make([]interface{}, len(a.values))
	copy(v, a.values)
	return v
}

// Arg returns argument i converted to T, or T's zero value when the argument is nil
// or of another type
func Arg[T any](a *Arguments, i int) T {
	v, _ := a.values[i].(T)
	return v
}

// Invocation is the per-call state passed through the advice chain: arguments, the in-flight
// result and the in-flight error. It is owned by a single call and must not be shared.
type Invocation struct {
	id        string
	op        *contracts.Operation
	args      *Arguments
	state     State
	result    interface{}
	hasResult bool
	err       error

	// set when an advice supplied the result itself during the current phase
	resultByAdvice bool
	violation      *contracts.AdviceContractError
	current        string
	attempts       int
	values         map[string]interface{}
}

func newInvocation(op *contracts.Operation, args *Arguments) *Invocation {
	args.params = op.Parameters
	return &Invocation{
		id:    uuid.New().String(),
		op:    op,
		args:  args,
		state: NotStarted,
	}
}

// ID returns the unique identifier of this invocation
func (inv *Invocation) ID() string {
	return inv.id
}

// Operation returns the descriptor of the wrapped operation
func (inv *Invocation) Operation() *contracts.Operation {
	return inv.op
}

// Args returns the shared argument values
func (inv *Invocation) Args() *Arguments {
	return inv.args
}

// State returns the current pipeline state
func (inv *Invocation) State() State {
	return inv.state
}

// Attempts returns how many times the base operation has executed so far
func (inv *Invocation) Attempts() int {
	return inv.attempts
}

// Result returns the in-flight result and whether one is set
func (inv *Invocation) Result() (interface{}, bool) {
	return inv.result, inv.hasResult
}

// Err returns the in-flight error
func (inv *Invocation) Err() error {
	return inv.err
}

// SetResult supplies or replaces the result. Called from a Before advice it short-circuits
// the call. Setting a result while an error is pending violates the advice contract; use
// Recover to suppress an error.
func (inv *Invocation) SetResult(value interface{}) {
	if inv.err != nil {
		inv.violate("result set while an error is pending")
		return
	}
	inv.result = value
	inv.hasResult = true
	inv.resultByAdvice = true
}

// SetError replaces the pending error. Setting an error while a result is present violates
// the advice contract.
func (inv *Invocation) SetError(err error) {
	if err == nil {
		return
	}
	if inv.hasResult {
		inv.violate("error set while a result is present")
		return
	}
	inv.err = err
}

// Recover suppresses the pending error and substitutes value as the result
func (inv *Invocation) Recover(value interface{}) {
	inv.err = nil
	inv.result = value
	inv.hasResult = true
	inv.resultByAdvice = true
}

// Set stores a value shared between the advice of this invocation
func (inv *Invocation) Set(key string, value interface{}) {
	if inv.values == nil {
		inv.values = make(map[string]interface{})
	}
	inv.values[key] = value
}

// Get retrieves a value stored with Set
func (inv *Invocation) Get(key string) (interface{}, bool) {
	value, exists := inv.values[key]
	return value, exists
}

// settle records an outcome produced by the pipeline itself
func (inv *Invocation) settle(result interface{}, err error) {
	if err != nil {
		inv.result, inv.hasResult, inv.err = nil, false, err
		return
	}
	inv.result, inv.hasResult, inv.err = result, true, nil
}

func (inv *Invocation) clear() {
	inv.result, inv.hasResult, inv.err = nil, false, nil
	inv.resultByAdvice = false
}

func (inv *Invocation) violate(format string, args ...interface{}) {
	if inv.violation != nil {
		return
	}
	inv.violation = &contracts.AdviceContractError{
		Advice:    inv.current,
		Operation: inv.op.FullName(),
		Reason:    fmt.Sprintf(format, args...),
	}
}

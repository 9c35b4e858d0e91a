package contracts

import "strings"

// Direction describes how a parameter value flows between caller and operation
type Direction int

const (
	// In parameters are read by the operation
	In Direction = iota
	// Out parameters are written by the operation and read back by the caller
	Out
	// Ref parameters are both read and written by the operation
	Ref
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Ref:
		return "ref"
	default:
		return "unknown"
	}
}

// Parameter describes one declared parameter of an operation
type Parameter struct {
	Name      string    `json:"name" yaml:"name"`
	Type      string    `json:"type,omitempty" yaml:"type,omitempty"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// IsOut reports whether the parameter carries no input value
func (p Parameter) IsOut() bool {
	return p.Direction == Out
}

// ReturnSlot describes the result of an operation
type ReturnSlot struct {
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Void bool   `json:"void,omitempty" yaml:"void,omitempty"`
}

// Operation is the structural description of a wrapped callable
type Operation struct {
	// Type is the minimally qualified name of the declaring type, empty for free functions
	Type       string      `json:"type,omitempty" yaml:"type,omitempty"`
	Name       string      `json:"name" yaml:"name"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Return     ReturnSlot  `json:"return" yaml:"return"`
}

// NewOperation creates an operation descriptor from a "Type.Name" or "Name" string
func NewOperation(fullName string, params ...Parameter) *Operation {
	op := &Operation{Name: fullName, Parameters: params}
	if i := strings.LastIndex(fullName, "."); i > 0 {
		op.Type = fullName[:i]
		op.Name = fullName[i+1:]
	}
	return op
}

// Param is shorthand for an input parameter
func Param(name, typ string) Parameter {
	return Parameter{Name: name, Type: typ, Direction: In}
}

// OutParam is shorthand for an output parameter
func OutParam(name, typ string) Parameter {
	return Parameter{Name: name, Type: typ, Direction: Out}
}

// RefParam is shorthand for a by-reference parameter
func RefParam(name, typ string) Parameter {
	return Parameter{Name: name, Type: typ, Direction: Ref}
}

// Returning sets the return slot type
func (o *Operation) Returning(typ string) *Operation {
	o.Return = ReturnSlot{Type: typ}
	return o
}

// ReturningVoid marks the operation as producing no value
func (o *Operation) ReturningVoid() *Operation {
	o.Return = ReturnSlot{Void: true}
	return o
}

// FullName returns "Type.Name", or just the name when no type is set
func (o *Operation) FullName() string {
	if o == nil {
		return ""
	}
	if o.Type == "" {
		return o.Name
	}
	return o.Type + "." + o.Name
}

// IndexOf returns the position of the named parameter or -1
func (o *Operation) IndexOf(name string) int {
	for i, p := range o.Parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

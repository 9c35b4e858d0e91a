package contracts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation(t *testing.T) {
	t.Run("NewOperation splits type and name", func(t *testing.T) {
		op := NewOperation("Foo.Bar", Param("x", "int"), Param("y", "int")).Returning("int")

		assert.Equal(t, "Foo", op.Type)
		assert.Equal(t, "Bar", op.Name)
		assert.Equal(t, "Foo.Bar", op.FullName())
		assert.Len(t, op.Parameters, 2)
		assert.False(t, op.Return.Void)
	})

	t.Run("NewOperation keeps nested type qualifiers", func(t *testing.T) {
		op := NewOperation("Outer.Inner.Run")

		assert.Equal(t, "Outer.Inner", op.Type)
		assert.Equal(t, "Run", op.Name)
	})

	t.Run("free function has no type", func(t *testing.T) {
		op := NewOperation("compute").ReturningVoid()

		assert.Equal(t, "", op.Type)
		assert.Equal(t, "compute", op.FullName())
		assert.True(t, op.Return.Void)
	})

	t.Run("IndexOf finds parameters by name", func(t *testing.T) {
		op := NewOperation("Foo.Bar", Param("x", "int"), OutParam("y", "int"))

		assert.Equal(t, 1, op.IndexOf("y"))
		assert.Equal(t, -1, op.IndexOf("z"))
		assert.True(t, op.Parameters[1].IsOut())
		assert.Equal(t, "out", op.Parameters[1].Direction.String())
	})

	t.Run("nil operation has empty name", func(t *testing.T) {
		var op *Operation
		assert.Equal(t, "", op.FullName())
	})
}

func TestAdviceContractError(t *testing.T) {
	err := &AdviceContractError{Advice: "Bad", Operation: "Foo.Bar", Reason: "result and error both set"}

	assert.True(t, errors.Is(err, ErrAdviceContractViolation))
	assert.True(t, IsContractViolation(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsContractViolation(errors.New("boom")))
	assert.Equal(t, "advice contract violation in Foo.Bar by Bad: result and error both set", err.Error())
}

func TestDiagnosticDefinition(t *testing.T) {
	var got []Diagnostic
	reporter := DiagnosticReporterFunc(func(code string, severity Severity, message string, location string) {
		got = append(got, Diagnostic{Code: code, Severity: severity, Message: message, Location: location})
	})

	def := DiagnosticDefinition{Code: "MY001", Severity: SeverityError, Format: "type '%s' is broken"}
	def.Report(reporter, "pkg.Thing", "Thing")
	def.Report(nil, "ignored")

	assert.Len(t, got, 1)
	assert.Equal(t, "pkg.Thing: error MY001: type 'Thing' is broken", got[0].String())
}

package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrAdviceContractViolation marks programming errors made by advice authors
	ErrAdviceContractViolation = errors.New("advice contract violation")

	// ErrArgumentCount is returned when an invocation supplies the wrong number of arguments
	ErrArgumentCount = errors.New("argument count does not match operation parameters")
)

// AdviceContractError describes how an advice broke the result/error invariant.
// It is fatal: never retried and never passed to exception advice.
type AdviceContractError struct {
	Advice    string
	Operation string
	Reason    string
}

func (e *AdviceContractError) Error() string {
	if e.Advice == "" {
		return fmt.Sprintf("advice contract violation in %s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("advice contract violation in %s by %s: %s", e.Operation, e.Advice, e.Reason)
}

// Is makes errors.Is(err, ErrAdviceContractViolation) match
func (e *AdviceContractError) Is(target error) bool {
	return target == ErrAdviceContractViolation
}

// IsContractViolation reports whether err is or wraps an advice contract violation
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrAdviceContractViolation)
}

package interceptors

import "errors"

var (
	// ErrNilOperation is returned by Build when no operation descriptor is given
	ErrNilOperation = errors.New("interceptors: operation descriptor is required")

	// ErrNilFunc is returned by Build when no base operation is given
	ErrNilFunc = errors.New("interceptors: base operation is required")

	// ErrInvalidMaxAttempts is reported when retry advice is configured with fewer than one attempt
	ErrInvalidMaxAttempts = errors.New("retry: maxAttempts must be at least 1")
)

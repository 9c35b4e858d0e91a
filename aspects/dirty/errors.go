package dirty

import "errors"

var (
	ErrNilTarget = errors.New("dirty: target is required")
)

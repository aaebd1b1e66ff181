package device

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an operation needing a live handle
// is issued while disconnected (spec.md §7, always surfaced).
var ErrNotConnected = errors.New("device: not connected")

// ValidationError reports an EffectValue outside [0,100]. Surfaced
// immediately, before any I/O is attempted (spec.md §7).
type ValidationError struct {
	Field string
	Value int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("device: %s=%d out of range [0,100]", e.Field, e.Value)
}

package dbvault

import (
	"errors"
	"fmt"
)

// ErrVaultClosed is returned for any submission made after Close, and for
// submissions racing Close that lost the race. The process is fine; only the
// vault is gone.
var ErrVaultClosed = errors.New("dbvault: vault is closed")

// EngineError wraps an error raised by the database engine or driver, as
// opposed to an error returned by the action's own logic. The worker decides
// which of the two applies per execution; the two are never nested.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return "dbvault: engine error: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// PanicError reports a panic recovered while an action was running. The
// worker survives it; only the offending submission observes the failure.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dbvault: action panicked: %v", e.Value)
}

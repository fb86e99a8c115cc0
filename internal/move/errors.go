package move

import (
	"errors"
	"fmt"
)

const (
	CodeAssignError = "ASSIGN_ERROR"
	CodeMoveError   = "MOVE_ERROR"
)

var (
	ErrBusy        = errors.New("a move is already in progress")
	ErrUnsupported = errors.New("unsupported move")
)

// MoveError wraps a failed transition. Code is ASSIGN_ERROR for moves out of
// the unassigned pool and MOVE_ERROR for everything else.
type MoveError struct {
	Code       string
	Transition Transition
	Err        error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Transition, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

func newMoveError(t Transition, err error) *MoveError {
	code := CodeMoveError
	if t.fromPool() {
		code = CodeAssignError
	}
	return &MoveError{Code: code, Transition: t, Err: err}
}

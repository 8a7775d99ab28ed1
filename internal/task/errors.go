package task

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrSkipped marks a computation that chose not to produce a result.
	// Nodes depending on it are skipped as well; it is not a failure.
	ErrSkipped = errors.New("task skipped")
	// ErrInputConsumed is returned when an input reference is consumed twice.
	ErrInputConsumed = errors.New("input already consumed")
	// ErrInputType is returned when a consumed input has an unexpected type.
	ErrInputType = errors.New("unexpected input type")
)

// Skip returns an error that skips the current node.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// PanicError is a recovered panic of task code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recover converts a panic in fn into a *PanicError.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

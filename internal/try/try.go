// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package try folds deferred cleanups and recovered panics into a
// function's named error result, so a panicking handler or a file which
// fails to close surfaces as an ordinary error.
package try

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
)

// PanicError wraps a value recovered from a panic along with the stack of
// the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the [builtin.error] interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is itself an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover must be deferred directly. A recovered panic is joined onto *err
// as a [PanicError].
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	perr := PanicError{
		Value: r,
		Stack: debug.Stack(),
	}
	*err = errors.Join(*err, perr)
}

// CloseError occurs when closing a resource fails.
type CloseError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e CloseError) Unwrap() error {
	return e.Cause
}

// Close closes v when it is an [io.Closer], which lets callers defer it on
// a plain [io.Reader] that may or may not own a file. A failure is joined
// onto *err as a [CloseError].
func Close(err *error, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	if cerr := c.Close(); cerr != nil {
		*err = errors.Join(*err, CloseError{Cause: cerr})
	}
}

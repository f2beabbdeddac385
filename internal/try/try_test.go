// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package try

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func panicking(result error, value any) func() error {
	return func() (err error) {
		defer Recover(&err)
		err = result
		if value != nil {
			panic(value)
		}
		return err
	}
}

func TestRecover(t *testing.T) {
	handlerErr := errors.New("handler failed")
	writeErr := errors.New("write failed")

	testCases := []struct {
		Name     string
		Result   error
		Value    any
		Unwraps  error
		Preserve bool
	}{
		{Name: "if a handler panics with a string", Value: "index out of range"},
		{Name: "if a handler panics with an error", Value: writeErr, Unwraps: writeErr},
		{Name: "if the result was already set", Result: handlerErr, Value: writeErr, Unwraps: writeErr, Preserve: true},
	}

	t.Run("will return a PanicError", func(t *testing.T) {
		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				err := panicking(testCase.Result, testCase.Value)()

				var perr PanicError
				if !assert.ErrorAs(t, err, &perr) {
					return
				}
				if !assert.Equal(t, testCase.Value, perr.Value) {
					return
				}
				if !assert.Contains(t, perr.Error(), "recovered from panic") {
					return
				}
				if !assert.Equal(t, testCase.Unwraps, perr.Unwrap()) {
					return
				}
				if !assert.True(t, strings.Contains(string(perr.Stack), "panicking")) {
					return
				}
				if testCase.Preserve && !assert.ErrorIs(t, err, testCase.Result) {
					return
				}
			})
		}
	})

	t.Run("will leave the result alone", func(t *testing.T) {
		t.Run("if nothing panics", func(t *testing.T) {
			err := panicking(handlerErr, nil)()
			if !assert.Equal(t, handlerErr, err) {
				return
			}

			err = panicking(nil, nil)()
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

type readCloser struct {
	io.Reader
	io.Closer
}

func TestClose(t *testing.T) {
	closeErr := errors.New("close failed")
	readErr := errors.New("read failed")

	read := func(r io.Reader, result error) error {
		f := func() (err error) {
			defer Close(&err, r)
			return result
		}
		return f()
	}

	t.Run("will return a CloseError", func(t *testing.T) {
		t.Run("if closing the reader fails", func(t *testing.T) {
			r := readCloser{
				Reader: strings.NewReader("http:"),
				Closer: closeFunc(func() error { return closeErr }),
			}

			err := read(r, nil)

			var cerr CloseError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
			if !assert.ErrorIs(t, cerr, closeErr) {
				return
			}
			if !assert.NotEmpty(t, cerr.Error()) {
				return
			}
		})

		t.Run("alongside the existing result", func(t *testing.T) {
			r := readCloser{
				Reader: strings.NewReader("http:"),
				Closer: closeFunc(func() error { return closeErr }),
			}

			err := read(r, readErr)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
			if !assert.ErrorIs(t, err, closeErr) {
				return
			}
		})
	})

	t.Run("will close the reader once", func(t *testing.T) {
		t.Run("if it is an io.Closer", func(t *testing.T) {
			var closed int
			r := readCloser{
				Reader: strings.NewReader("http:"),
				Closer: closeFunc(func() error {
					closed++
					return nil
				}),
			}

			err := read(r, readErr)
			if !assert.Equal(t, readErr, err) {
				return
			}
			if !assert.Equal(t, 1, closed) {
				return
			}
		})
	})

	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if the reader is not an io.Closer", func(t *testing.T) {
			err := read(strings.NewReader("http:"), readErr)
			if !assert.Equal(t, readErr, err) {
				return
			}
		})

		t.Run("if there is no reader", func(t *testing.T) {
			err := read(nil, nil)
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}

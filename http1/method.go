// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import "fmt"

// Method is a request method recognized by the parser.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodConnect Method = "CONNECT"
	MethodTrace   Method = "TRACE"
)

var knownMethods = map[string]Method{
	string(MethodGet):     MethodGet,
	string(MethodPost):    MethodPost,
	string(MethodPut):     MethodPut,
	string(MethodDelete):  MethodDelete,
	string(MethodPatch):   MethodPatch,
	string(MethodHead):    MethodHead,
	string(MethodOptions): MethodOptions,
	string(MethodConnect): MethodConnect,
	string(MethodTrace):   MethodTrace,
}

// UnknownMethodError occurs when a method token is not one of the recognized methods.
type UnknownMethodError struct {
	Method string
}

// Error implements the [builtin.error] interface.
func (e UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown http method: %q", e.Method)
}

// ParseMethod maps a method token to its [Method]. Tokens are case sensitive.
func ParseMethod(s string) (Method, error) {
	m, ok := knownMethods[s]
	if !ok {
		return "", UnknownMethodError{Method: s}
	}
	return m, nil
}

// String implements the [fmt.Stringer] interface.
func (m Method) String() string {
	return string(m)
}

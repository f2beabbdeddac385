// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Request is a parsed request. Method and Path are always set when
// returned from [ParseRequest] without an error.
type Request struct {
	Method Method

	// Path is the raw request target, including any query string.
	Path   string
	Header Header
	Body   []byte

	// RemoteAddr is the address of the client, if known.
	RemoteAddr net.Addr
}

// Query returns the value of the first name=value pair in the query
// string. Pairs are split on '&' and the first '=', and the value is
// returned exactly as sent, without any unescaping.
func (r Request) Query(name string) (string, bool) {
	_, rawQuery, ok := strings.Cut(r.Path, "?")
	if !ok {
		return "", false
	}

	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")

		k, v, ok := strings.Cut(pair, "=")
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

// ErrMalformedRequest is matched by every error returned from [ParseRequest].
var ErrMalformedRequest = errors.New("malformed request")

// ParseError describes why a raw buffer could not be parsed into a [Request].
type ParseError struct {
	Reason string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ParseError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("failed to parse request: %s", e.Reason)
	}
	return fmt.Sprintf("failed to parse request: %s: %s", e.Reason, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is [ErrMalformedRequest].
func (e ParseError) Is(target error) bool {
	return target == ErrMalformedRequest
}

var headerBoundary = []byte("\r\n\r\n")

// ParseRequest parses a single request from raw.
//
// The request line must contain a method and a path, the version token
// is ignored. Header lines are split on their first colon and lines
// without one are skipped. Everything after the first empty line is
// copied into Body as is.
func ParseRequest(raw []byte) (Request, error) {
	head, body, _ := bytes.Cut(raw, headerBoundary)

	lines := strings.Split(string(head), "\n")
	requestLine := strings.TrimSuffix(lines[0], "\r")
	if strings.TrimSpace(requestLine) == "" {
		return Request{}, ParseError{Reason: "missing request line"}
	}

	tokens := strings.Fields(requestLine)
	if len(tokens) < 2 {
		return Request{}, ParseError{Reason: fmt.Sprintf("malformed request line: %q", requestLine)}
	}

	method, err := ParseMethod(tokens[0])
	if err != nil {
		return Request{}, ParseError{Reason: "unrecognized method", Cause: err}
	}

	header := make(Header, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		header[name] = strings.TrimSpace(value)
	}

	req := Request{
		Method: method,
		Path:   tokens[1],
		Header: header,
	}
	if len(body) > 0 {
		req.Body = bytes.Clone(body)
	}
	return req, nil
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// DefaultContentType is sent when a [Response] does not set a Content-Type.
const DefaultContentType = "text/html"

// Response is what a handler produces for a [Request].
type Response struct {
	StatusCode int

	// Reason is the reason phrase sent on the status line. When empty,
	// the standard phrase for StatusCode is used.
	Reason string
	Header Header
	Body   []byte
}

// Text returns a text/plain response with the standard reason phrase.
func Text(code int, body string) Response {
	return Response{
		StatusCode: code,
		Reason:     StatusText(code),
		Header:     Header{"Content-Type": "text/plain"},
		Body:       []byte(body),
	}
}

// StatusText returns the standard reason phrase for code.
func StatusText(code int) string {
	return http.StatusText(code)
}

// Serialize renders the response onto the wire.
//
// Content-Length is set to the length of Body and Content-Type defaults to
// [DefaultContentType] unless the producer already set either of them.
// Header names are written once regardless of case. Header values are
// written as is, so they must not contain CR or LF.
func (r Response) Serialize() []byte {
	var buf bytes.Buffer
	buf.Grow(64 + len(r.Body) + 32*len(r.Header))

	reason := r.Reason
	if reason == "" {
		reason = StatusText(r.StatusCode)
	}
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(reason)
	buf.WriteString("\r\n")

	if !r.Header.Has("Content-Length") {
		writeHeader(&buf, "Content-Length", strconv.Itoa(len(r.Body)))
	}
	if !r.Header.Has("Content-Type") {
		writeHeader(&buf, "Content-Type", DefaultContentType)
	}
	// names differing only by case are written once, the first in sorted order wins
	written := make(map[string]struct{}, len(r.Header))
	for _, name := range r.Header.sortedNames() {
		folded := strings.ToLower(name)
		if _, ok := written[folded]; ok {
			continue
		}
		written[folded] = struct{}{}
		writeHeader(&buf, name, r.Header[name])
	}

	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http1 implements the small subset of HTTP/1.1 framing used by
// wirehttp: a request is parsed from exactly one read buffer and a response
// is serialized into exactly one write.
//
// There is no support for keep-alive, chunked transfer-encoding or streamed
// bodies. Everything following the blank line that terminates the header
// section is taken verbatim as the request body and is never validated
// against a declared Content-Length.
package http1

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package transport abstracts the byte stream a request is read from and a
// response is written to. A [Plain] transport passes bytes straight through
// to the accepted connection while a [TLS] transport terminates TLS first.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync/atomic"
	"syscall"
)

// Transport negotiates a [Session] on top of a freshly accepted connection.
//
// If Accept returns an error the caller still owns conn and must close it
// without performing any further I/O.
type Transport interface {
	Accept(context.Context, net.Conn) (Session, error)
}

// Session is a negotiated, per-connection byte stream. Once Close has been
// called, Read and Write return [ErrSessionClosed].
type Session interface {
	io.ReadWriteCloser

	RemoteAddr() net.Addr
}

// ErrSessionClosed is returned when reading from or writing to a closed [Session].
var ErrSessionClosed = errors.New("transport: session closed")

// MaxIOSize is the largest buffer a single Read or Write will accept.
const MaxIOSize = math.MaxInt32

// PayloadTooLargeError occurs when a buffer passed to Read or Write is
// larger than [MaxIOSize].
type PayloadTooLargeError struct {
	Op   string
	Size int
}

// Error implements the [builtin.error] interface.
func (e PayloadTooLargeError) Error() string {
	return fmt.Sprintf("transport: %s of %d bytes exceeds maximum of %d bytes", e.Op, e.Size, MaxIOSize)
}

func checkSize(op string, n int) error {
	if n > MaxIOSize {
		return PayloadTooLargeError{Op: op, Size: n}
	}
	return nil
}

// Kind classifies an I/O failure.
type Kind int

const (
	ReadFailure Kind = iota
	WriteFailure
	CloseFailure
	ConnectionClosed
)

// String implements the [fmt.Stringer] interface.
func (k Kind) String() string {
	switch k {
	case ReadFailure:
		return "read failure"
	case WriteFailure:
		return "write failure"
	case CloseFailure:
		return "close failure"
	case ConnectionClosed:
		return "connection closed"
	default:
		return fmt.Sprintf("unknown transport failure: %d", int(k))
	}
}

// Error is returned for any failed I/O on a [Session].
type Error struct {
	Op    string
	Kind  Kind
	Cause error
}

// Error implements the [builtin.error] interface.
func (e Error) Error() string {
	return fmt.Sprintf("transport: %s: %s: %s", e.Op, e.Kind, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e Error) Unwrap() error {
	return e.Cause
}

func classify(op string, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	kind := fallback
	if errors.Is(err, io.EOF) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		kind = ConnectionClosed
	}
	return Error{Op: op, Kind: kind, Cause: err}
}

// stream implements the size checks, closed state and error
// classification shared by every [Session].
type stream struct {
	conn   net.Conn
	rw     io.ReadWriter
	closed atomic.Bool
}

func (s *stream) Read(b []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	if err := checkSize("read", len(b)); err != nil {
		return 0, err
	}
	n, err := s.rw.Read(b)
	return n, classify("read", ReadFailure, err)
}

func (s *stream) Write(b []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	if err := checkSize("write", len(b)); err != nil {
		return 0, err
	}
	n, err := s.rw.Write(b)
	return n, classify("write", WriteFailure, err)
}

func (s *stream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// markClosed reports whether this call transitioned the stream to closed.
func (s *stream) markClosed() bool {
	return s.closed.CompareAndSwap(false, true)
}

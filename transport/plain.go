// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package transport

import (
	"context"
	"net"
)

// Plain is a [Transport] which reads and writes the raw connection.
type Plain struct{}

// Accept implements the [Transport] interface. It never fails.
func (Plain) Accept(_ context.Context, conn net.Conn) (Session, error) {
	return &plainSession{stream: stream{conn: conn, rw: conn}}, nil
}

type plainSession struct {
	stream
}

// Close implements the [io.Closer] interface.
func (s *plainSession) Close() error {
	if !s.markClosed() {
		return nil
	}
	return classify("close", CloseFailure, s.conn.Close())
}

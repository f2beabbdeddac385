// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
)

// ConfigError occurs when a [TLS] transport cannot be initialized.
type ConfigError struct {
	CertFile string
	KeyFile  string
	Cause    error
}

// Error implements the [builtin.error] interface.
func (e ConfigError) Error() string {
	return fmt.Sprintf("transport: failed to load tls certificate %q and key %q: %s", e.CertFile, e.KeyFile, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigError) Unwrap() error {
	return e.Cause
}

// HandshakeError occurs when the server side TLS handshake fails.
type HandshakeError struct {
	RemoteAddr net.Addr
	Cause      error
}

// Error implements the [builtin.error] interface.
func (e HandshakeError) Error() string {
	return fmt.Sprintf("transport: tls handshake with %s failed: %s", e.RemoteAddr, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e HandshakeError) Unwrap() error {
	return e.Cause
}

var errNoCertificates = errors.New("tls config has no certificates")

// TLS is a [Transport] which terminates TLS on every accepted connection.
// Its [tls.Config] is built once and shared by every session.
type TLS struct {
	cfg *tls.Config
}

// NewTLS loads a PEM encoded certificate and private key pair.
func NewTLS(certFile, keyFile string) (*TLS, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, ConfigError{CertFile: certFile, KeyFile: keyFile, Cause: err}
	}
	return NewTLSFromConfig(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
}

// NewTLSFromConfig uses cfg as is. cfg must contain at least one certificate
// or provide GetCertificate.
func NewTLSFromConfig(cfg *tls.Config) (*TLS, error) {
	if cfg == nil || (len(cfg.Certificates) == 0 && cfg.GetCertificate == nil && cfg.GetConfigForClient == nil) {
		return nil, ConfigError{Cause: errNoCertificates}
	}
	return &TLS{cfg: cfg}, nil
}

// Accept implements the [Transport] interface. The handshake is performed
// eagerly so failures surface here instead of on the first Read.
func (t *TLS) Accept(ctx context.Context, conn net.Conn) (Session, error) {
	tc := tls.Server(conn, t.cfg)
	err := tc.HandshakeContext(ctx)
	if err != nil {
		return nil, HandshakeError{RemoteAddr: conn.RemoteAddr(), Cause: err}
	}
	return &tlsSession{
		stream: stream{conn: conn, rw: tc},
		tc:     tc,
	}, nil
}

type tlsSession struct {
	stream

	tc *tls.Conn
}

// Close implements the [io.Closer] interface. A close_notify alert is sent
// before the underlying connection is closed.
func (s *tlsSession) Close() error {
	if !s.markClosed() {
		return nil
	}
	return classify("close", CloseFailure, s.tc.Close())
}

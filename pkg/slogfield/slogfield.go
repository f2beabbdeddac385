// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield provides typed constructors for the log attributes
// shared by every wirehttp component so the same value is always logged
// under the same key.
package slogfield

import (
	"log/slog"
	"net"
	"time"

	"github.com/z5labs/wirehttp/http1"
)

// Any returns an slog.Attr for the supplied value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Bool returns an slog.Attr for a bool.
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Strings returns an slog.Attr for a slice of strings.
func Strings(key string, values []string) slog.Attr {
	return slog.Any(key, values)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Int64 returns an slog.Attr for a int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// Uint64 returns an slog.Attr for a uint64.
func Uint64(key string, n uint64) slog.Attr {
	return slog.Uint64(key, n)
}

// Method logs the request method under "http.method".
func Method(m http1.Method) slog.Attr {
	return slog.String("http.method", string(m))
}

// Path logs the raw request target under "http.path".
func Path(p string) slog.Attr {
	return slog.String("http.path", p)
}

// Status logs the response status code under "http.status_code".
func Status(code int) slog.Attr {
	return slog.Int("http.status_code", code)
}

// RemoteAddrKey is the key [RemoteAddr] logs under.
const RemoteAddrKey = "net.remote_addr"

// RemoteAddr logs the client address under [RemoteAddrKey].
// A nil address is logged as an empty string.
func RemoteAddr(addr net.Addr) slog.Attr {
	if addr == nil {
		return slog.String(RemoteAddrKey, "")
	}
	return slog.String(RemoteAddrKey, addr.String())
}

// ConnID logs the per worker connection sequence number under "net.conn_id".
func ConnID(id uint64) slog.Attr {
	return slog.Uint64("net.conn_id", id)
}

// Worker logs the index of the worker handling a connection.
func Worker(n int) slog.Attr {
	return slog.Int("server.worker", n)
}

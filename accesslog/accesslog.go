// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package accesslog appends one line per completed exchange to a plain text
// file and keeps that file under a configured size by dropping its oldest
// lines.
package accesslog

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/z5labs/wirehttp/http1"
	"github.com/z5labs/wirehttp/internal/try"

	"github.com/spf13/afero"
)

// TimestampLayout is the layout of the timestamp which starts every entry.
const TimestampLayout = "2006-01-02 15:04:05"

// Config is fixed for the lifetime of a [Log].
type Config struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`

	// MaxSizeBytes bounds the file size. Zero or less disables the bound.
	MaxSizeBytes int64 `config:"maxSizeBytes"`
}

// Option configures a [Log].
type Option func(*Log)

// FS sets the filesystem the log file lives on. Defaults to the OS filesystem.
func FS(fs afero.Fs) Option {
	return func(l *Log) {
		l.fs = fs
	}
}

// Clock overrides the source of entry timestamps.
func Clock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// Log is safe for concurrent use. Appending an entry and any rewrite it
// triggers happen under a single lock so concurrent workers never rewrite
// the file at the same time.
type Log struct {
	cfg Config
	fs  afero.Fs
	now func() time.Time

	mu sync.Mutex
}

// OpenError occurs when an enabled log file cannot be created.
type OpenError struct {
	Path  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e OpenError) Error() string {
	return fmt.Sprintf("failed to open access log %q: %s", e.Path, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e OpenError) Unwrap() error {
	return e.Cause
}

// New returns a [Log]. When enabled, the log file is created up front so a
// bad path fails at startup instead of on the first request.
func New(cfg Config, opts ...Option) (*Log, error) {
	l := &Log{
		cfg: cfg,
		fs:  afero.NewOsFs(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if !cfg.Enabled {
		return l, nil
	}

	f, err := l.fs.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, OpenError{Path: cfg.Path, Cause: err}
	}
	err = f.Close()
	if err != nil {
		return nil, OpenError{Path: cfg.Path, Cause: err}
	}
	return l, nil
}

// Enabled reports whether entries are being written.
func (l *Log) Enabled() bool {
	return l.cfg.Enabled
}

// Log appends an entry for the exchange and then enforces the size limit.
// It does nothing if the log is disabled.
func (l *Log) Log(req http1.Request, resp http1.Response, remote net.Addr) error {
	if !l.cfg.Enabled {
		return nil
	}

	entry := FormatEntry(l.now(), req, resp, remote)

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.appendEntry(entry)
	if err != nil {
		return err
	}
	return l.enforceSizeLimit()
}

func (l *Log) appendEntry(entry string) (err error) {
	f, err := l.fs.OpenFile(l.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer try.Close(&err, f)

	_, err = f.WriteString(entry)
	return err
}

// EnforceSizeLimit leaves the file untouched while it is at or under the
// configured maximum. Otherwise it drops the oldest fifth of the lines, and
// always at least one, by writing the rest to a temporary file which is then
// renamed over the log.
func (l *Log) EnforceSizeLimit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enforceSizeLimit()
}

func (l *Log) enforceSizeLimit() error {
	if l.cfg.MaxSizeBytes <= 0 {
		return nil
	}

	info, err := l.fs.Stat(l.cfg.Path)
	if err != nil {
		return err
	}
	if info.Size() <= l.cfg.MaxSizeBytes {
		return nil
	}

	b, err := afero.ReadFile(l.fs, l.cfg.Path)
	if err != nil {
		return err
	}

	lines := bytes.SplitAfter(b, []byte("\n"))
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	drop := max(1, len(lines)/5)
	if drop > len(lines) {
		drop = len(lines)
	}

	var kept bytes.Buffer
	kept.Grow(len(b))
	for _, line := range lines[drop:] {
		kept.Write(line)
		if !bytes.HasSuffix(line, []byte("\n")) {
			kept.WriteByte('\n')
		}
	}

	tmp := l.cfg.Path + ".tmp"
	err = afero.WriteFile(l.fs, tmp, kept.Bytes(), 0o644)
	if err != nil {
		return err
	}
	return l.fs.Rename(tmp, l.cfg.Path)
}

// FormatEntry renders a single newline terminated entry:
//
//	[2006-01-02 15:04:05] 10.0.0.1 - "GET /index.html" 200 1234
func FormatEntry(ts time.Time, req http1.Request, resp http1.Response, remote net.Addr) string {
	return fmt.Sprintf(
		"[%s] %s - \"%s %s\" %d %d\n",
		ts.Format(TimestampLayout),
		clientIP(remote),
		req.Method,
		req.Path,
		resp.StatusCode,
		len(resp.Body),
	)
}

func clientIP(addr net.Addr) string {
	switch x := addr.(type) {
	case nil:
		return "-"
	case *net.TCPAddr:
		if x == nil {
			return "-"
		}
		return x.IP.String()
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}
		return host
	}
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package server accepts connections on a fixed number of workers, each
// owning its own listener bound to the shared port, and serves exactly one
// request per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/z5labs/wirehttp/http1"
	"github.com/z5labs/wirehttp/internal/fixedpool"
	"github.com/z5labs/wirehttp/pkg/health"
	"github.com/z5labs/wirehttp/pkg/noop"
	"github.com/z5labs/wirehttp/pkg/slogfield"
	"github.com/z5labs/wirehttp/transport"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/z5labs/wirehttp/server"

// DefaultReadBufferSize is the capacity of the single read made for
// every connection. Requests larger than it are truncated.
const DefaultReadBufferSize = 4096

// Dispatcher resolves a request to a response. The bool result is false
// when nothing produced a response.
type Dispatcher interface {
	Dispatch(context.Context, *http1.Request) (http1.Response, bool)
}

// AccessLogger records a completed exchange.
type AccessLogger interface {
	Log(req http1.Request, resp http1.Response, remote net.Addr) error
}

type options struct {
	port           uint
	workers        int
	transport      transport.Transport
	accessLog      AccessLogger
	logHandler     slog.Handler
	readBufferSize int
	readTimeout    time.Duration
	writeTimeout   time.Duration
	serving        *health.Binary
}

// Option configures a [Server].
type Option func(*options)

// ListenOnPort sets the port every worker listens on. Port 0 picks an
// ephemeral port which all workers then share.
//
// Default port is 8080.
func ListenOnPort(port uint) Option {
	return func(o *options) {
		o.port = port
	}
}

// Workers sets the number of listeners, and accept loops, to run.
//
// Default is 1.
func Workers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Transport sets how accepted connections are wrapped.
//
// Default is [transport.Plain].
func Transport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// AccessLog records every exchange which was successfully written.
func AccessLog(l AccessLogger) Option {
	return func(o *options) {
		o.accessLog = l
	}
}

// LogHandler sets the [slog.Handler] the engine logs connection
// lifecycle events to. Logs are discarded by default.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// ReadBufferSize sets the capacity of the per connection read buffer.
func ReadBufferSize(n int) Option {
	return func(o *options) {
		o.readBufferSize = n
	}
}

// ReadTimeout bounds the transport handshake and the request read.
// Zero means no deadline.
func ReadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WriteTimeout bounds the response write. Zero means no deadline.
func WriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// Serving is marked healthy while the workers are accepting connections.
func Serving(b *health.Binary) Option {
	return func(o *options) {
		o.serving = b
	}
}

// ErrNotListening is returned by [Server.Serve] before [Server.Listen] succeeded.
var ErrNotListening = errors.New("server: not listening")

// ErrAlreadyListening is returned by a second call to [Server.Listen].
var ErrAlreadyListening = errors.New("server: already listening")

// ErrReusePortUnsupported is returned when more than one worker is
// configured on a platform without SO_REUSEPORT.
var ErrReusePortUnsupported = errors.New("server: SO_REUSEPORT is not supported on this platform")

// ListenError occurs when a worker listener can not be bound.
type ListenError struct {
	Addr   string
	Worker int
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ListenError) Error() string {
	return fmt.Sprintf("worker %d failed to listen on %s: %s", e.Worker, e.Addr, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ListenError) Unwrap() error {
	return e.Cause
}

// AcceptError occurs when a listener stops accepting connections for any
// reason other than shutdown.
type AcceptError struct {
	Worker int
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e AcceptError) Error() string {
	return fmt.Sprintf("worker %d stopped accepting connections: %s", e.Worker, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AcceptError) Unwrap() error {
	return e.Cause
}

// Server owns its listeners and the workers accepting on them.
type Server struct {
	port           uint
	workers        int
	listen         func(ctx context.Context, network, address string) (net.Listener, error)
	dispatcher     Dispatcher
	transport      transport.Transport
	accessLog      AccessLogger
	readBufferSize int
	readTimeout    time.Duration
	writeTimeout   time.Duration
	serving        *health.Binary

	log         *slog.Logger
	tracer      trace.Tracer
	connections metric.Int64Counter

	mu        sync.Mutex
	listeners []net.Listener
}

// New returns a [Server] which dispatches every parsed request to d.
func New(d Dispatcher, opts ...Option) (*Server, error) {
	o := &options{
		port:           8080,
		workers:        1,
		transport:      transport.Plain{},
		logHandler:     noop.LogHandler{},
		readBufferSize: DefaultReadBufferSize,
		serving:        &health.Binary{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		return nil, fmt.Errorf("server: worker count must be at least 1, got %d", o.workers)
	}
	if o.readBufferSize < 1 {
		return nil, fmt.Errorf("server: read buffer size must be at least 1, got %d", o.readBufferSize)
	}

	connections, err := otel.Meter(instrumentationName).Int64Counter(
		"wirehttp.server.connections",
		metric.WithDescription("Connections handled, by outcome."),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	// Not serving until the workers start accepting.
	o.serving.Set(false)

	s := &Server{
		port:           o.port,
		workers:        o.workers,
		listen:         listenReusePort,
		dispatcher:     d,
		transport:      o.transport,
		accessLog:      o.accessLog,
		readBufferSize: o.readBufferSize,
		readTimeout:    o.readTimeout,
		writeTimeout:   o.writeTimeout,
		serving:        o.serving,
		log:            slog.New(o.logHandler),
		tracer:         otel.Tracer(instrumentationName),
		connections:    connections,
	}
	return s, nil
}

func listenReusePort(ctx context.Context, network, address string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: reusePort,
	}
	return lc.Listen(ctx, network, address)
}

// Listen binds one listener per worker to the configured port. If any
// listener fails to bind, the ones already bound are closed.
func (s *Server) Listen(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.listeners) > 0 {
		return ErrAlreadyListening
	}

	addr := fmt.Sprintf(":%d", s.port)
	if s.workers > 1 && !reusePortSupported {
		return ListenError{Addr: addr, Cause: ErrReusePortUnsupported}
	}

	ls := make([]net.Listener, 0, s.workers)
	defer func() {
		if err == nil {
			return
		}
		for _, l := range ls {
			l.Close()
		}
	}()

	for i := 0; i < s.workers; i++ {
		l, lerr := s.listen(ctx, "tcp", addr)
		if lerr != nil {
			s.log.ErrorContext(ctx, "failed to listen for connections", slogfield.Worker(i), slogfield.Error(lerr))
			return ListenError{Addr: addr, Worker: i, Cause: lerr}
		}
		ls = append(ls, l)

		// the first listener decides the port when an ephemeral one was requested
		if i == 0 && s.port == 0 {
			addr = l.Addr().String()
		}
	}

	s.listeners = ls
	return nil
}

// Addr returns the address of every bound listener.
func (s *Server) Addr() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.Addr())
	}
	return addrs
}

// Serve runs one accept loop per listener until ctx is cancelled, at which
// point every listener is closed. A connection already being handled is
// finished before its worker returns.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ls := s.listeners
	s.mu.Unlock()

	if len(ls) == 0 {
		return ErrNotListening
	}
	defer func() {
		s.mu.Lock()
		s.listeners = nil
		s.mu.Unlock()
	}()

	tasks := make([]fixedpool.Task, 0, len(ls)+1)
	for i, l := range ls {
		tasks = append(tasks, s.acceptLoop(i, l))
	}
	tasks = append(tasks, closeOnDone(ls))

	s.serving.Set(true)
	defer s.serving.Set(false)

	addrs := make([]string, 0, len(ls))
	for _, l := range ls {
		addrs = append(addrs, l.Addr().String())
	}
	s.log.InfoContext(ctx, "serving connections", slogfield.Strings("addrs", addrs))

	err := fixedpool.Wait(ctx, tasks...)
	if err != nil {
		s.log.ErrorContext(ctx, "server stopped unexpectedly", slogfield.Error(err))
		return err
	}
	s.log.InfoContext(ctx, "server shut down")
	return nil
}

// Run implements the wirehttp.App interface.
func (s *Server) Run(ctx context.Context) error {
	err := s.Listen(ctx)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

func closeOnDone(ls []net.Listener) fixedpool.Task {
	return func(ctx context.Context) error {
		<-ctx.Done()

		var errs []error
		for _, l := range ls {
			err := l.Close()
			if err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func (s *Server) acceptLoop(worker int, l net.Listener) fixedpool.Task {
	return func(ctx context.Context) error {
		log := s.log.With(slogfield.Worker(worker))

		var connID uint64
		for {
			conn, err := l.Accept()
			if ctx.Err() != nil {
				if conn != nil {
					conn.Close()
				}
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return AcceptError{Worker: worker, Cause: err}
			}
			if err != nil {
				log.WarnContext(ctx, "failed to accept connection", slogfield.Error(err))
				continue
			}

			connID++
			s.handle(ctx, log.With(slogfield.ConnID(connID), slogfield.RemoteAddr(conn.RemoteAddr())), conn)
		}
	}
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wires every wirehttp package into the runnable server.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/z5labs/wirehttp"
	"github.com/z5labs/wirehttp/accesslog"
	"github.com/z5labs/wirehttp/kv"
	"github.com/z5labs/wirehttp/pkg/app"
	"github.com/z5labs/wirehttp/pkg/appbuilder"
	"github.com/z5labs/wirehttp/pkg/health"
	"github.com/z5labs/wirehttp/pkg/maskslog"
	"github.com/z5labs/wirehttp/pkg/otelslog"
	"github.com/z5labs/wirehttp/pkg/slogfield"
	"github.com/z5labs/wirehttp/router"
	"github.com/z5labs/wirehttp/server"
	"github.com/z5labs/wirehttp/static"
	"github.com/z5labs/wirehttp/transport"

	"github.com/spf13/afero"
)

// DefaultHealthPath is used when no health path is configured.
const DefaultHealthPath = "/health"

// Config is the full server config.
type Config struct {
	Logging struct {
		Level slog.Level `config:"level"`

		// MaskRemoteAddr replaces client addresses in logs with "****".
		MaskRemoteAddr bool `config:"maskRemoteAddr"`
	} `config:"logging"`

	OTel OTelConfig `config:"otel"`

	HTTP struct {
		Port           uint          `config:"port"`
		Workers        int           `config:"workers"`
		ReadBufferSize int           `config:"readBufferSize"`
		ReadTimeout    time.Duration `config:"readTimeout"`
		WriteTimeout   time.Duration `config:"writeTimeout"`
		HealthPath     string        `config:"healthPath"`

		TLS struct {
			Enabled  bool   `config:"enabled"`
			CertFile string `config:"certFile"`
			KeyFile  string `config:"keyFile"`
		} `config:"tls"`
	} `config:"http"`

	Static struct {
		Dir      string `config:"dir"`
		Indexing bool   `config:"indexing"`
	} `config:"static"`

	AccessLog accesslog.Config `config:"accessLog"`
}

type options struct {
	fs        afero.Fs
	logOutput io.Writer
	signals   []os.Signal

	// called with the server before it is wrapped, tests use it to find
	// the bound addresses
	onServer func(*server.Server)
}

// Option customizes the built app.
type Option func(*options)

// FS sets the filesystem the static files and access log live on.
func FS(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// LogOutput sets where JSON logs are written. Defaults to stderr.
func LogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// Signals overrides the signals which shut the server down.
//
// Default is [os.Interrupt] and [syscall.SIGTERM].
func Signals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// Builder returns the [wirehttp.AppBuilder] used by the wirehttp binary.
func Builder(opts ...Option) wirehttp.AppBuilder[Config] {
	return appbuilder.Recover[Config](
		appbuilder.OTel[Config](
			wirehttp.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (wirehttp.App, error) {
				return Build(ctx, cfg, opts...)
			}),
		),
	)
}

// Build constructs the server described by cfg. The returned app stops
// serving once its context is cancelled or a shutdown signal is received.
func Build(ctx context.Context, cfg Config, opts ...Option) (wirehttp.App, error) {
	o := &options{
		fs:        afero.NewOsFs(),
		logOutput: os.Stderr,
		signals:   []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(o)
	}

	var logHandler slog.Handler = otelslog.NewJSONHandler(o.logOutput, cfg.Logging.Level)
	if cfg.Logging.MaskRemoteAddr {
		logHandler = maskslog.NewHandler(logHandler, maskslog.Attr(slogfield.RemoteAddrKey, maskslog.Anonymous))
	}
	log := slog.New(logHandler)

	healthPath := cfg.HTTP.HealthPath
	if healthPath == "" {
		healthPath = DefaultHealthPath
	}

	serving := &health.Binary{}
	r, err := router.New(
		router.Use(health.Middleware(healthPath, serving)),
		router.Patterns(kv.Methods, kv.Pattern, kv.NewStore()),
		router.Fallback(static.New(
			cfg.Static.Dir,
			static.Indexing(cfg.Static.Indexing),
			static.FS(o.fs),
			static.LogHandler(logHandler),
		)),
	)
	if err != nil {
		log.ErrorContext(ctx, "failed to build router", slogfield.Error(err))
		return nil, err
	}

	accessLog, err := accesslog.New(cfg.AccessLog, accesslog.FS(o.fs))
	if err != nil {
		log.ErrorContext(ctx, "failed to open access log", slogfield.Error(err))
		return nil, err
	}

	srvOpts := []server.Option{
		server.ListenOnPort(cfg.HTTP.Port),
		server.LogHandler(logHandler),
		server.Serving(serving),
		server.ReadTimeout(cfg.HTTP.ReadTimeout),
		server.WriteTimeout(cfg.HTTP.WriteTimeout),
	}
	if cfg.HTTP.Workers > 0 {
		srvOpts = append(srvOpts, server.Workers(cfg.HTTP.Workers))
	}
	if cfg.HTTP.ReadBufferSize > 0 {
		srvOpts = append(srvOpts, server.ReadBufferSize(cfg.HTTP.ReadBufferSize))
	}
	if accessLog.Enabled() {
		srvOpts = append(srvOpts, server.AccessLog(accessLog))
	}
	if cfg.HTTP.TLS.Enabled {
		t, err := transport.NewTLS(cfg.HTTP.TLS.CertFile, cfg.HTTP.TLS.KeyFile)
		if err != nil {
			log.ErrorContext(ctx, "failed to load tls certificate", slogfield.Error(err))
			return nil, err
		}
		srvOpts = append(srvOpts, server.Transport(t))
	}

	srv, err := server.New(r, srvOpts...)
	if err != nil {
		return nil, err
	}
	if o.onServer != nil {
		o.onServer(srv)
	}

	// trim a log left over from a previous run before serving
	preRun := app.LifecycleHookFunc(func(ctx context.Context) error {
		if !accessLog.Enabled() {
			return nil
		}
		return accessLog.EnforceSizeLimit()
	})

	base := app.WithLifecycleHooks(srv, app.Lifecycle{PreRun: preRun})
	base = app.Recover(base)
	return app.WithSignalNotifications(base, o.signals...), nil
}

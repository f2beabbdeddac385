// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package wirehttp runs a small HTTP/1.1 server built directly on TCP,
// optionally behind TLS.
//
// Every accepted connection carries exactly one request: the server reads
// it with a single bounded read, dispatches it through a middleware chain
// and route table, writes one response and closes the connection.
//
// This package only holds the application plumbing shared by every
// binary, which is built around two abstractions:
//
//   - [App]: anything which can be run until its [context.Context] is cancelled
//   - [AppBuilder]: constructs an [App] from a typed config
//
// [Run] layers the embedded defaults, an optional YAML or JSON config file
// and WIREHTTP_ prefixed environment variables, unmarshals the result into
// the config type, builds the [App] and runs it:
//
//	err := wirehttp.Run(
//	    ctx,
//	    wirehttp.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (wirehttp.App, error) {
//	        return server.New(r, server.ListenOnPort(cfg.Port))
//	    }),
//	    wirehttp.Defaults(bytes.NewReader(defaultYaml)),
//	    wirehttp.ConfigFile("/etc/wirehttp.yaml"),
//	)
//
// Each step fails with its own error type: [ConfigReadError],
// [ConfigUnmarshalError], [AppBuildError] or [AppRunError].
//
// The wire format lives in package http1, the byte stream abstraction in
// package transport, the worker engine in package server and request
// dispatching in package router.
package wirehttp

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder wraps the wirehttp.AppBuilder which assembles the
// server with panic recovery and OpenTelemetry setup.
package appbuilder

import (
	"context"

	"github.com/z5labs/wirehttp"
	"github.com/z5labs/wirehttp/internal/try"
)

// Recover turns a panic while building, e.g. from a nil collaborator,
// into an app.PanicError returned from Build.
func Recover[T any](builder wirehttp.AppBuilder[T]) wirehttp.AppBuilder[T] {
	return wirehttp.AppBuilderFunc[T](func(ctx context.Context, cfg T) (_ wirehttp.App, err error) {
		defer try.Recover(&err)

		return builder.Build(ctx, cfg)
	})
}

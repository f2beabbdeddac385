// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"
	"errors"

	"github.com/z5labs/wirehttp"
	"github.com/z5labs/wirehttp/pkg/app"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the set of OpenTelemetry globals the server reports its
// connection spans and counters through. A nil field leaves the global
// untouched, so a zero Telemetry keeps the no-op defaults.
type Telemetry struct {
	Propagator     propagation.TextMapPropagator
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

func (t Telemetry) install() {
	if t.Propagator != nil {
		otel.SetTextMapPropagator(t.Propagator)
	}
	if t.TracerProvider != nil {
		otel.SetTracerProvider(t.TracerProvider)
	}
	if t.MeterProvider != nil {
		otel.SetMeterProvider(t.MeterProvider)
	}
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// Shutdown flushes and stops the tracer and meter providers. Providers
// without a Shutdown method, like the no-op ones, are skipped.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, p := range []any{t.TracerProvider, t.MeterProvider} {
		s, ok := p.(shutdowner)
		if !ok {
			continue
		}
		errs = append(errs, s.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// TelemetryInitializer is implemented by config types which know how to
// construct the server's [Telemetry].
type TelemetryInitializer interface {
	InitTelemetry(context.Context) (Telemetry, error)
}

// OTel installs the [Telemetry] initialized from cfg as the OpenTelemetry
// globals before building the wrapped [wirehttp.AppBuilder], so the server
// picks up the real tracer and meter when it is constructed.
//
// The telemetry is shut down once the built [wirehttp.App] stops running,
// flushing any buffered spans and metrics, or right away if the wrapped
// builder fails.
func OTel[T TelemetryInitializer](builder wirehttp.AppBuilder[T]) wirehttp.AppBuilder[T] {
	return wirehttp.AppBuilderFunc[T](func(ctx context.Context, cfg T) (wirehttp.App, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tel, err := cfg.InitTelemetry(ctx)
		if err != nil {
			return nil, err
		}
		tel.install()

		base, err := builder.Build(ctx, cfg)
		if err != nil {
			return nil, errors.Join(err, tel.Shutdown(ctx))
		}
		return app.WithLifecycleHooks(base, app.Lifecycle{
			PostRun: app.LifecycleHookFunc(tel.Shutdown),
		}), nil
	})
}

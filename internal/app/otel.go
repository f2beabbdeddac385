// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/z5labs/wirehttp/pkg/appbuilder"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// OTelConfig controls the OpenTelemetry SDK. Spans and metrics are
// exported as JSON to stdout. When disabled the global no-op providers
// are left in place.
type OTelConfig struct {
	Enabled        bool          `config:"enabled"`
	ServiceName    string        `config:"serviceName"`
	MetricInterval time.Duration `config:"metricInterval"`

	// exporters write here, defaults to stdout
	out io.Writer
}

// InitTelemetry implements the appbuilder.TelemetryInitializer interface.
func (cfg Config) InitTelemetry(ctx context.Context) (appbuilder.Telemetry, error) {
	if !cfg.OTel.Enabled {
		return appbuilder.Telemetry{}, nil
	}

	out := cfg.OTel.out
	if out == nil {
		out = os.Stdout
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(attribute.String("service.name", cfg.OTel.ServiceName)),
	)
	if err != nil {
		return appbuilder.Telemetry{}, err
	}

	spanExp, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return appbuilder.Telemetry{}, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithResource(res),
	)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
	if err != nil {
		return appbuilder.Telemetry{}, errors.Join(err, tp.Shutdown(ctx))
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.OTel.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.OTel.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	tel := appbuilder.Telemetry{
		Propagator: propagation.NewCompositeTextMapPropagator(
			propagation.Baggage{},
			propagation.TraceContext{},
		),
		TracerProvider: tp,
		MeterProvider:  mp,
	}
	return tel, nil
}

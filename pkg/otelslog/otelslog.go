// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelslog ties server logs to the connection span they were
// logged under.
package otelslog

import (
	"context"
	"io"
	"log/slog"

	"github.com/z5labs/wirehttp/pkg/slogfield"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Handler].
type Option func(*Handler)

// SpanEvents records every log at or above lvl as an event on the span in
// the record's context, so a failed read or write shows up on the
// connection span as well as in the logs.
//
// Default level is [slog.LevelWarn].
func SpanEvents(lvl slog.Leveler) Option {
	return func(h *Handler) {
		h.eventLevel = lvl
	}
}

// Handler adds the trace and span id, grouped under "otel", to every record
// logged with a span carrying context.
type Handler struct {
	next       slog.Handler
	eventLevel slog.Leveler
}

// NewHandler wraps h.
func NewHandler(h slog.Handler, opts ...Option) *Handler {
	oh := &Handler{
		next:       h,
		eventLevel: slog.LevelWarn,
	}
	for _, opt := range opts {
		opt(oh)
	}
	return oh
}

// NewJSONHandler is the handler wirehttp logs through: JSON records, with
// their source location, written to w at or above lvl.
func NewJSONHandler(w io.Writer, lvl slog.Leveler, opts ...Option) *Handler {
	return NewHandler(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     lvl,
		}),
		opts...,
	)
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return h.next.Handle(ctx, record)
	}

	if record.Level >= h.eventLevel.Level() && span.IsRecording() {
		span.AddEvent(
			record.Message,
			trace.WithTimestamp(record.Time),
			trace.WithAttributes(attribute.String("log.severity", record.Level.String())),
		)
	}

	r := record.Clone()
	r.AddAttrs(slog.Group(
		"otel",
		slogfield.String("trace_id", sc.TraceID().String()),
		slogfield.String("span_id", sc.SpanID().String()),
	))
	return h.next.Handle(ctx, r)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		next:       h.next.WithAttrs(attrs),
		eventLevel: h.eventLevel,
	}
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		next:       h.next.WithGroup(name),
		eventLevel: h.eventLevel,
	}
}

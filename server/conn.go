// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/z5labs/wirehttp/http1"
	"github.com/z5labs/wirehttp/internal/try"
	"github.com/z5labs/wirehttp/pkg/slogfield"
	"github.com/z5labs/wirehttp/transport"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// outcome is how a connection ended. It is recorded on the connection
// span and as an attribute of the connections counter.
type outcome string

const (
	outcomeServed          outcome = "served"
	outcomeHandshakeFailed outcome = "handshake_failed"
	outcomeReadFailed      outcome = "read_failed"
	outcomeEmpty           outcome = "empty"
	outcomeBadRequest      outcome = "bad_request"
	outcomeNoResponse      outcome = "no_response"
	outcomeWriteFailed     outcome = "write_failed"
	outcomePanic           outcome = "panic"
)

func (s *Server) handle(ctx context.Context, log *slog.Logger, conn net.Conn) {
	spanCtx, span := s.tracer.Start(
		ctx,
		"wirehttp.server.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer.addr", conn.RemoteAddr().String())),
	)
	defer span.End()

	o, err := s.serveConn(spanCtx, log, conn)
	if err != nil {
		// recovered panic. The raw conn is closed in case no session owned it yet.
		o = outcomePanic
		conn.Close()

		attrs := []any{slogfield.Error(err)}
		var perr try.PanicError
		if errors.As(err, &perr) {
			attrs = append(attrs, slogfield.String("stack", string(perr.Stack)))
		}
		log.ErrorContext(spanCtx, "recovered from panic while handling connection", attrs...)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(attribute.String("wirehttp.outcome", string(o)))
	s.connections.Add(spanCtx, 1, metric.WithAttributes(attribute.String("outcome", string(o))))
}

func (s *Server) serveConn(ctx context.Context, log *slog.Logger, conn net.Conn) (o outcome, err error) {
	defer try.Recover(&err)

	if s.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	sess, err := s.transport.Accept(ctx, conn)
	if err != nil {
		log.WarnContext(ctx, "failed to negotiate transport", slogfield.Error(err))
		conn.Close()
		return outcomeHandshakeFailed, nil
	}
	defer func() {
		cerr := sess.Close()
		if cerr != nil {
			logIOError(ctx, log, "failed to close session", cerr)
		}
	}()

	buf := make([]byte, s.readBufferSize)
	n, err := sess.Read(buf)
	if n == 0 {
		if err != nil {
			logIOError(ctx, log, "failed to read request", err)
			return outcomeReadFailed, nil
		}
		return outcomeEmpty, nil
	}

	req, err := http1.ParseRequest(buf[:n])
	if err != nil {
		log.WarnContext(ctx, "failed to parse request", slogfield.Error(err))

		// there is no request to record so the access log is skipped
		s.write(ctx, log, conn, sess, http1.Text(400, "400 Bad Request"))
		return outcomeBadRequest, nil
	}
	req.RemoteAddr = sess.RemoteAddr()

	log = log.With(slogfield.Method(req.Method), slogfield.Path(req.Path))

	resp, ok := s.dispatcher.Dispatch(ctx, &req)
	if !ok {
		log.WarnContext(ctx, "no response produced for request")
		return outcomeNoResponse, nil
	}

	if !s.write(ctx, log, conn, sess, resp) {
		return outcomeWriteFailed, nil
	}
	log.DebugContext(ctx, "served request", slogfield.Status(resp.StatusCode))

	if s.accessLog != nil {
		err := s.accessLog.Log(req, resp, req.RemoteAddr)
		if err != nil {
			log.ErrorContext(ctx, "failed to write access log entry", slogfield.Error(err))
		}
	}
	return outcomeServed, nil
}

func (s *Server) write(ctx context.Context, log *slog.Logger, conn net.Conn, sess transport.Session, resp http1.Response) bool {
	if s.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}

	_, err := sess.Write(resp.Serialize())
	if err != nil {
		logIOError(ctx, log, "failed to write response", err)
		return false
	}
	return true
}

// logIOError logs a peer hanging up at debug level since it is routine.
func logIOError(ctx context.Context, log *slog.Logger, msg string, err error) {
	var terr transport.Error
	if errors.As(err, &terr) && terr.Kind == transport.ConnectionClosed {
		log.DebugContext(ctx, msg, slogfield.Error(err))
		return
	}
	log.WarnContext(ctx, msg, slogfield.Error(err))
}

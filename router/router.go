// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package router resolves a parsed request to a response by running an
// ordered middleware chain followed by exact path and then regular
// expression routes.
package router

import (
	"context"
	"fmt"
	"regexp"

	"github.com/z5labs/wirehttp/http1"
)

// Handler produces the response for a request.
type Handler interface {
	Handle(context.Context, http1.Request) http1.Response
}

// HandlerFunc is a func implementation of [Handler].
type HandlerFunc func(context.Context, http1.Request) http1.Response

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(ctx context.Context, req http1.Request) http1.Response {
	return f(ctx, req)
}

// Middleware runs before any routing. Returning true means the middleware
// has handled the request and resp holds the response to send.
type Middleware interface {
	Process(ctx context.Context, req *http1.Request, resp *http1.Response) bool
}

// MiddlewareFunc is a func implementation of [Middleware].
type MiddlewareFunc func(context.Context, *http1.Request, *http1.Response) bool

// Process implements the [Middleware] interface.
func (f MiddlewareFunc) Process(ctx context.Context, req *http1.Request, resp *http1.Response) bool {
	return f(ctx, req, resp)
}

// InvalidPatternError is returned by [New] when a pattern route fails to compile.
type InvalidPatternError struct {
	Method  http1.Method
	Pattern string
	Cause   error
}

// Error implements the [builtin.error] interface.
func (e InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q for %s: %s", e.Pattern, e.Method, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidPatternError) Unwrap() error {
	return e.Cause
}

// Option configures a [Router]. Options are applied in order.
type Option func(*Router) error

// Use appends middlewares to the chain.
func Use(mws ...Middleware) Option {
	return func(r *Router) error {
		r.middlewares = append(r.middlewares, mws...)
		return nil
	}
}

// Route registers h for an exact path. Registering the same method and
// path again replaces the previous handler.
func Route(method http1.Method, path string, h Handler) Option {
	return Routes([]http1.Method{method}, path, h)
}

// RouteFunc is a helper for registering a [HandlerFunc] with [Route].
func RouteFunc(method http1.Method, path string, f func(context.Context, http1.Request) http1.Response) Option {
	return Route(method, path, HandlerFunc(f))
}

// Routes registers h for an exact path under every given method.
func Routes(methods []http1.Method, path string, h Handler) Option {
	return func(r *Router) error {
		for _, method := range methods {
			exact, ok := r.exact[method]
			if !ok {
				exact = make(map[string]Handler)
				r.exact[method] = exact
			}
			exact[path] = h
		}
		return nil
	}
}

// Pattern registers h for every path fully matched by expr. Patterns are
// tried in registration order and only after no exact route matched.
func Pattern(method http1.Method, expr string, h Handler) Option {
	return Patterns([]http1.Method{method}, expr, h)
}

// Patterns registers h for a pattern under every given method.
func Patterns(methods []http1.Method, expr string, h Handler) Option {
	return func(r *Router) error {
		for _, method := range methods {
			re, err := regexp.Compile(`^(?:` + expr + `)$`)
			if err != nil {
				return InvalidPatternError{
					Method:  method,
					Pattern: expr,
					Cause:   err,
				}
			}
			r.patterns[method] = append(r.patterns[method], patternRoute{
				re:      re,
				handler: h,
			})
		}
		return nil
	}
}

// Fallback sets the handler used when no route matches.
func Fallback(h Handler) Option {
	return func(r *Router) error {
		r.fallback = h
		return nil
	}
}

type patternRoute struct {
	re      *regexp.Regexp
	handler Handler
}

// Router is immutable once returned from [New] and safe to share between
// any number of goroutines.
type Router struct {
	middlewares []Middleware
	exact       map[http1.Method]map[string]Handler
	patterns    map[http1.Method][]patternRoute
	fallback    Handler
}

// New builds a [Router] from the given options.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		exact:    make(map[http1.Method]map[string]Handler),
		patterns: make(map[http1.Method][]patternRoute),
	}
	for _, opt := range opts {
		err := opt(r)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Dispatch runs the middleware chain and, unless a middleware handled the
// request, resolves it against the exact routes, the pattern routes and
// finally the fallback. The bool result is false if nothing produced a response.
func (r *Router) Dispatch(ctx context.Context, req *http1.Request) (http1.Response, bool) {
	var resp http1.Response
	for _, mw := range r.middlewares {
		if mw.Process(ctx, req, &resp) {
			return resp, true
		}
	}

	if h, ok := r.exact[req.Method][req.Path]; ok {
		return h.Handle(ctx, *req), true
	}

	for _, route := range r.patterns[req.Method] {
		if route.re.MatchString(req.Path) {
			return route.handler.Handle(ctx, *req), true
		}
	}

	if r.fallback != nil {
		return r.fallback.Handle(ctx, *req), true
	}
	return http1.Response{}, false
}

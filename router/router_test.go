// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package router

import (
	"context"
	"testing"

	"github.com/z5labs/wirehttp/http1"

	"github.com/stretchr/testify/assert"
)

func respond(body string) Handler {
	return HandlerFunc(func(ctx context.Context, req http1.Request) http1.Response {
		return http1.Text(200, body)
	})
}

func dispatch(t *testing.T, r *Router, method http1.Method, path string) (string, bool) {
	t.Helper()

	resp, ok := r.Dispatch(context.Background(), &http1.Request{Method: method, Path: path})
	return string(resp.Body), ok
}

func TestNew(t *testing.T) {
	t.Run("will return an InvalidPatternError", func(t *testing.T) {
		t.Run("if a pattern does not compile", func(t *testing.T) {
			_, err := New(
				Pattern(http1.MethodGet, `/broken/(\d+`, respond("x")),
			)

			var perr InvalidPatternError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, http1.MethodGet, perr.Method) {
				return
			}
			if !assert.Equal(t, `/broken/(\d+`, perr.Pattern) {
				return
			}
			if !assert.NotEmpty(t, perr.Error()) {
				return
			}
			if !assert.Equal(t, perr.Cause, perr.Unwrap()) {
				return
			}
		})
	})
}

func TestRouter_Dispatch(t *testing.T) {
	t.Run("will prefer an exact route over a pattern", func(t *testing.T) {
		t.Run("if the pattern was registered first", func(t *testing.T) {
			r, err := New(
				Pattern(http1.MethodGet, `/users/.*`, respond("pattern")),
				Route(http1.MethodGet, "/users/me", respond("exact")),
			)
			if !assert.Nil(t, err) {
				return
			}

			body, ok := dispatch(t, r, http1.MethodGet, "/users/me")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "exact", body) {
				return
			}

			body, ok = dispatch(t, r, http1.MethodGet, "/users/42")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "pattern", body) {
				return
			}
		})

		t.Run("if the exact route was registered first", func(t *testing.T) {
			r, err := New(
				Route(http1.MethodGet, "/users/me", respond("exact")),
				Pattern(http1.MethodGet, `/users/.*`, respond("pattern")),
			)
			if !assert.Nil(t, err) {
				return
			}

			body, _ := dispatch(t, r, http1.MethodGet, "/users/me")
			if !assert.Equal(t, "exact", body) {
				return
			}
		})
	})

	t.Run("will try patterns in registration order", func(t *testing.T) {
		t.Run("if more than one pattern matches the path", func(t *testing.T) {
			r, err := New(
				Pattern(http1.MethodGet, `/pattern/\d+`, respond("digits")),
				Pattern(http1.MethodGet, `/pattern/.*`, respond("anything")),
			)
			if !assert.Nil(t, err) {
				return
			}

			body, _ := dispatch(t, r, http1.MethodGet, "/pattern/123")
			if !assert.Equal(t, "digits", body) {
				return
			}

			body, _ = dispatch(t, r, http1.MethodGet, "/pattern/abc")
			if !assert.Equal(t, "anything", body) {
				return
			}
		})
	})

	t.Run("will require a pattern to match the whole path", func(t *testing.T) {
		t.Run("if the pattern only matches a prefix", func(t *testing.T) {
			r, err := New(
				Pattern(http1.MethodGet, `/pattern/\d+`, respond("digits")),
			)
			if !assert.Nil(t, err) {
				return
			}

			_, ok := dispatch(t, r, http1.MethodGet, "/pattern/123/abc")
			if !assert.False(t, ok) {
				return
			}
		})
	})

	t.Run("will use the last handler registered", func(t *testing.T) {
		t.Run("if the same exact route is registered twice", func(t *testing.T) {
			r, err := New(
				Route(http1.MethodGet, "/", respond("first")),
				Route(http1.MethodGet, "/", respond("second")),
			)
			if !assert.Nil(t, err) {
				return
			}

			body, _ := dispatch(t, r, http1.MethodGet, "/")
			if !assert.Equal(t, "second", body) {
				return
			}
		})
	})

	t.Run("will register a route for every method", func(t *testing.T) {
		t.Run("if a set of methods is given", func(t *testing.T) {
			methods := []http1.Method{http1.MethodGet, http1.MethodPut, http1.MethodDelete}
			r, err := New(
				Routes(methods, "/items", respond("items")),
				Patterns(methods, `/kv(\?.*)?`, respond("kv")),
			)
			if !assert.Nil(t, err) {
				return
			}

			for _, method := range methods {
				body, ok := dispatch(t, r, method, "/items")
				if !assert.True(t, ok) {
					return
				}
				if !assert.Equal(t, "items", body) {
					return
				}

				body, ok = dispatch(t, r, method, "/kv?key=a")
				if !assert.True(t, ok) {
					return
				}
				if !assert.Equal(t, "kv", body) {
					return
				}
			}

			_, ok := dispatch(t, r, http1.MethodPost, "/items")
			if !assert.False(t, ok) {
				return
			}
		})
	})

	t.Run("will stop dispatching", func(t *testing.T) {
		t.Run("if a middleware reports the request as handled", func(t *testing.T) {
			var calls []string
			first := MiddlewareFunc(func(ctx context.Context, req *http1.Request, resp *http1.Response) bool {
				calls = append(calls, "first")
				return false
			})
			second := MiddlewareFunc(func(ctx context.Context, req *http1.Request, resp *http1.Response) bool {
				calls = append(calls, "second")
				*resp = http1.Text(401, "Unauthorized")
				return true
			})
			third := MiddlewareFunc(func(ctx context.Context, req *http1.Request, resp *http1.Response) bool {
				calls = append(calls, "third")
				return false
			})
			route := HandlerFunc(func(ctx context.Context, req http1.Request) http1.Response {
				calls = append(calls, "route")
				return http1.Text(200, "route")
			})

			r, err := New(
				Use(first, second, third),
				Route(http1.MethodGet, "/", route),
				Fallback(route),
			)
			if !assert.Nil(t, err) {
				return
			}

			resp, ok := r.Dispatch(context.Background(), &http1.Request{Method: http1.MethodGet, Path: "/"})
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, 401, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, []string{"first", "second"}, calls) {
				return
			}
		})
	})

	t.Run("will pass middleware changes to the route", func(t *testing.T) {
		t.Run("if the middleware does not handle the request", func(t *testing.T) {
			rewrite := MiddlewareFunc(func(ctx context.Context, req *http1.Request, resp *http1.Response) bool {
				req.Path = "/rewritten"
				return false
			})

			r, err := New(
				Use(rewrite),
				Route(http1.MethodGet, "/rewritten", respond("rewritten")),
			)
			if !assert.Nil(t, err) {
				return
			}

			body, _ := dispatch(t, r, http1.MethodGet, "/original")
			if !assert.Equal(t, "rewritten", body) {
				return
			}
		})
	})

	t.Run("will call the fallback", func(t *testing.T) {
		t.Run("if no route matches", func(t *testing.T) {
			r, err := New(
				Route(http1.MethodGet, "/", respond("root")),
				Fallback(HandlerFunc(func(ctx context.Context, req http1.Request) http1.Response {
					return http1.Text(404, "404 Not Found")
				})),
			)
			if !assert.Nil(t, err) {
				return
			}

			resp, ok := r.Dispatch(context.Background(), &http1.Request{Method: http1.MethodPost, Path: "/"})
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, 404, resp.StatusCode) {
				return
			}
		})
	})

	t.Run("will not produce a response", func(t *testing.T) {
		t.Run("if nothing matches and there is no fallback", func(t *testing.T) {
			r, err := New()
			if !assert.Nil(t, err) {
				return
			}

			_, ok := dispatch(t, r, http1.MethodGet, "/")
			if !assert.False(t, ok) {
				return
			}
		})
	})
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package static

import (
	"context"
	"errors"
	"testing"

	"github.com/z5labs/wirehttp/http1"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servingRoot(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.Nil(t, fs.MkdirAll("www/sub", 0o755))
	require.Nil(t, afero.WriteFile(fs, "www/index.html", []byte("<h1>hello</h1>"), 0o644))
	require.Nil(t, afero.WriteFile(fs, "www/data.json", []byte(`{"a":1}`), 0o644))
	require.Nil(t, afero.WriteFile(fs, "www/README", []byte("readme"), 0o644))
	require.Nil(t, afero.WriteFile(fs, "www/sub/a.txt", []byte("a"), 0o644))
	return fs
}

func get(h *Handler, path string) http1.Response {
	return h.Handle(context.Background(), http1.Request{Method: http1.MethodGet, Path: path})
}

func TestHandler_Handle(t *testing.T) {
	t.Run("will respond with 404 Not Found", func(t *testing.T) {
		t.Run("if the file does not exist", func(t *testing.T) {
			h := New("www", FS(servingRoot(t)))

			resp := get(h, "/missing.html")
			if !assert.Equal(t, 404, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, "404 Not Found", string(resp.Body)) {
				return
			}
			if !assert.Equal(t, "text/plain", resp.Header.Get("Content-Type")) {
				return
			}
		})
	})

	t.Run("will respond with 403 Forbidden", func(t *testing.T) {
		t.Run("if the path is a directory and indexing is disabled", func(t *testing.T) {
			h := New("www", FS(servingRoot(t)))

			for _, path := range []string{"/", "/sub", "/sub/"} {
				resp := get(h, path)
				if !assert.Equal(t, 403, resp.StatusCode, path) {
					return
				}
				if !assert.Equal(t, "403 Forbidden", string(resp.Body)) {
					return
				}
			}
		})

		t.Run("if the path climbs above the serving root", func(t *testing.T) {
			h := New("www", FS(servingRoot(t)), Indexing(true))

			for _, path := range []string{"/../secret", "/sub/../../secret", "/.."} {
				resp := get(h, path)
				if !assert.Equal(t, 403, resp.StatusCode, path) {
					return
				}
			}
		})
	})

	t.Run("will respond with the file contents", func(t *testing.T) {
		testCases := []struct {
			Name        string
			Path        string
			Body        string
			ContentType string
		}{
			{
				Name:        "if the file has a known extension",
				Path:        "/data.json",
				Body:        `{"a":1}`,
				ContentType: "application/json",
			},
			{
				Name:        "if the file has no extension",
				Path:        "/README",
				Body:        "readme",
				ContentType: "text/plain",
			},
			{
				Name:        "if the path has a query string",
				Path:        "/README?download=1",
				Body:        "readme",
				ContentType: "text/plain",
			},
			{
				Name:        "if the path is not clean",
				Path:        "/sub/../README",
				Body:        "readme",
				ContentType: "text/plain",
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				h := New("www", FS(servingRoot(t)))

				resp := get(h, testCase.Path)
				if !assert.Equal(t, 200, resp.StatusCode) {
					return
				}
				if !assert.Equal(t, testCase.Body, string(resp.Body)) {
					return
				}
				if !assert.Equal(t, testCase.ContentType, resp.Header.Get("Content-Type")) {
					return
				}
			})
		}
	})

	t.Run("will respond with a directory listing", func(t *testing.T) {
		t.Run("if the path is the serving root and indexing is enabled", func(t *testing.T) {
			h := New("www", FS(servingRoot(t)), Indexing(true))

			resp := get(h, "/")
			if !assert.Equal(t, 200, resp.StatusCode) {
				return
			}

			expected := `<!DOCTYPE html><html><head><title>Index of /</title></head><body><h1>Index of /</h1><ul>` +
				`<li><a href="/README">README</a></li>` +
				`<li><a href="/data.json">data.json</a></li>` +
				`<li><a href="/index.html">index.html</a></li>` +
				`<li><a href="/sub/">sub/</a></li>` +
				`</ul></body></html>`
			if !assert.Equal(t, expected, string(resp.Body)) {
				return
			}
			if !assert.Equal(t, "text/html", resp.Header.Get("Content-Type")) {
				return
			}
		})

		t.Run("if the path is a sub directory and indexing is enabled", func(t *testing.T) {
			h := New("www", FS(servingRoot(t)), Indexing(true))

			resp := get(h, "/sub")
			if !assert.Equal(t, 200, resp.StatusCode) {
				return
			}

			expected := `<!DOCTYPE html><html><head><title>Index of /sub</title></head><body><h1>Index of /sub</h1><ul>` +
				`<li><a href="/">..</a></li>` +
				`<li><a href="/sub/a.txt">a.txt</a></li>` +
				`</ul></body></html>`
			if !assert.Equal(t, expected, string(resp.Body)) {
				return
			}
		})
	})

	t.Run("will respond with 500 Internal Server Error", func(t *testing.T) {
		t.Run("if the file can not be read", func(t *testing.T) {
			h := New("www", FS(unreadableFs{Fs: servingRoot(t)}))

			resp := get(h, "/README")
			if !assert.Equal(t, 500, resp.StatusCode) {
				return
			}
		})
	})
}

type unreadableFs struct {
	afero.Fs
}

func (unreadableFs) Open(name string) (afero.File, error) {
	return nil, errors.New("permission denied")
}

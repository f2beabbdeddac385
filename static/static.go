// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package static serves files and, optionally, directory listings from a
// serving root. It is the fallback handler for any request no route matched.
package static

import (
	"context"
	"html"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/z5labs/wirehttp/http1"
	"github.com/z5labs/wirehttp/pkg/noop"
	"github.com/z5labs/wirehttp/pkg/slogfield"

	"github.com/spf13/afero"
)

// Option configures a [Handler].
type Option func(*Handler)

// Indexing enables HTML listings for directories. Without it directories
// respond with 403 Forbidden.
func Indexing(enabled bool) Option {
	return func(h *Handler) {
		h.indexing = enabled
	}
}

// FS sets the filesystem the serving root lives on. Defaults to the OS filesystem.
func FS(fs afero.Fs) Option {
	return func(h *Handler) {
		h.fs = fs
	}
}

// LogHandler sets the [slog.Handler] used for logging lookups.
func LogHandler(lh slog.Handler) Option {
	return func(h *Handler) {
		h.log = slog.New(lh)
	}
}

// Handler implements router.Handler for files under a single root.
type Handler struct {
	root     string
	indexing bool
	fs       afero.Fs
	log      *slog.Logger
}

// New returns a [Handler] serving the files under root.
func New(root string, opts ...Option) *Handler {
	h := &Handler{
		root: root,
		fs:   afero.NewOsFs(),
		log:  slog.New(noop.LogHandler{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func notFound() http1.Response {
	return http1.Text(404, "404 Not Found")
}

func forbidden() http1.Response {
	return http1.Text(403, "403 Forbidden")
}

func internalServerError() http1.Response {
	return http1.Text(500, "500 Internal Server Error")
}

// Handle maps the request path onto the serving root. The query string is
// ignored and paths which would climb above the root are forbidden.
func (h *Handler) Handle(ctx context.Context, req http1.Request) http1.Response {
	target, _, _ := strings.Cut(req.Path, "?")

	rel := path.Clean(strings.TrimPrefix(target, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		h.log.WarnContext(ctx, "rejected path outside of serving root", slogfield.Path(req.Path))
		return forbidden()
	}

	urlPath := "/"
	if rel != "." {
		urlPath += rel
	}
	name := filepath.Join(h.root, filepath.FromSlash(rel))

	info, err := h.fs.Stat(name)
	if os.IsNotExist(err) {
		h.log.InfoContext(ctx, "file not found", slogfield.Path(req.Path))
		return notFound()
	}
	if err != nil {
		h.log.ErrorContext(ctx, "failed to stat file", slogfield.Path(req.Path), slogfield.Error(err))
		return internalServerError()
	}

	if info.IsDir() {
		if !h.indexing {
			h.log.WarnContext(ctx, "directory indexing is disabled", slogfield.Path(req.Path))
			return forbidden()
		}
		return h.index(ctx, urlPath, name)
	}

	b, err := afero.ReadFile(h.fs, name)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to read file", slogfield.Path(req.Path), slogfield.Error(err))
		return internalServerError()
	}

	return http1.Response{
		StatusCode: 200,
		Header: http1.Header{
			"Content-Type": contentType(name),
		},
		Body: b,
	}
}

func contentType(name string) string {
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		return "text/plain"
	}
	return ct
}

func (h *Handler) index(ctx context.Context, urlPath, dir string) http1.Response {
	entries, err := afero.ReadDir(h.fs, dir)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to read directory", slogfield.Path(urlPath), slogfield.Error(err))
		return internalServerError()
	}

	base := urlPath
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	var sb strings.Builder
	title := html.EscapeString(urlPath)
	sb.WriteString("<!DOCTYPE html><html><head><title>Index of ")
	sb.WriteString(title)
	sb.WriteString("</title></head><body><h1>Index of ")
	sb.WriteString(title)
	sb.WriteString("</h1><ul>")

	if urlPath != "/" {
		parent := base[:strings.LastIndex(base[:len(base)-1], "/")+1]
		writeLink(&sb, parent, "..")
	}

	for _, entry := range entries {
		name := entry.Name()
		href := base + name
		if entry.IsDir() {
			href += "/"
			name += "/"
		}
		writeLink(&sb, href, name)
	}

	sb.WriteString("</ul></body></html>")

	return http1.Response{
		StatusCode: 200,
		Header: http1.Header{
			"Content-Type": "text/html",
		},
		Body: []byte(sb.String()),
	}
}

func writeLink(sb *strings.Builder, href, text string) {
	sb.WriteString(`<li><a href="`)
	sb.WriteString(html.EscapeString(href))
	sb.WriteString(`">`)
	sb.WriteString(html.EscapeString(text))
	sb.WriteString("</a></li>")
}

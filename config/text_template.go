// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"text/template"

	"github.com/z5labs/wirehttp/internal/try"
)

// RenderTextTemplateOption customizes a [TextTemplateRenderer].
type RenderTextTemplateOption func(*TextTemplateRenderer)

// TemplateFunc makes f callable as name from the config template.
func TemplateFunc(name string, f any) RenderTextTemplateOption {
	return func(ttr *TextTemplateRenderer) {
		ttr.tmpl.Funcs(template.FuncMap{name: f})
	}
}

// TemplateDelims changes the action delimiters from {{ and }}, e.g. for a
// document which needs literal braces. An empty delimiter keeps the default.
func TemplateDelims(left, right string) RenderTextTemplateOption {
	return func(ttr *TextTemplateRenderer) {
		ttr.tmpl.Delims(left, right)
	}
}

// TemplateError occurs when a config template fails to parse or execute.
type TemplateError struct {
	// Op is either "parse" or "execute".
	Op    string
	Cause error
}

// Error implements the error interface.
func (e TemplateError) Error() string {
	return fmt.Sprintf("failed to %s config template: %s", e.Op, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e TemplateError) Unwrap() error {
	return e.Cause
}

// TextTemplateRenderer is an io.Reader over a config document rendered
// through text/template. The source is read, and closed if it is an
// [io.Closer], on the first Read.
type TextTemplateRenderer struct {
	tmpl   *template.Template
	render func() (*bytes.Reader, error)
}

// RenderTextTemplate renders r as a config template. Besides any
// [TemplateFunc]s, templates may call:
//
//   - env: looks up an environment variable, e.g. {{env "WIREHTTP_PORT"}}
//   - default: falls back to a value when a string is empty,
//     e.g. {{env "WIREHTTP_PORT" | default 8080}}
func RenderTextTemplate(r io.Reader, opts ...RenderTextTemplateOption) *TextTemplateRenderer {
	ttr := &TextTemplateRenderer{
		tmpl: template.New("config").Funcs(template.FuncMap{
			"env":     os.Getenv,
			"default": defaultValue,
		}),
	}
	for _, opt := range opts {
		opt(ttr)
	}
	ttr.render = sync.OnceValues(func() (*bytes.Reader, error) {
		return ttr.renderFrom(r)
	})
	return ttr
}

func defaultValue(v any, s string) any {
	if len(s) == 0 {
		return v
	}
	return s
}

// Read implements the io.Reader interface. A render failure is returned
// from every call.
func (ttr *TextTemplateRenderer) Read(b []byte) (int, error) {
	rendered, err := ttr.render()
	if err != nil {
		return 0, err
	}
	return rendered.Read(b)
}

func (ttr *TextTemplateRenderer) renderFrom(r io.Reader) (_ *bytes.Reader, err error) {
	defer try.Close(&err, r)

	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	tmpl, err := ttr.tmpl.Parse(string(src))
	if err != nil {
		return nil, TemplateError{Op: "parse", Cause: err}
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, nil)
	if err != nil {
		return nil, TemplateError{Op: "execute", Cause: err}
	}
	return bytes.NewReader(buf.Bytes()), nil
}

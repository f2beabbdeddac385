// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/z5labs/wirehttp/internal/try"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a config [Document].
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// UnsupportedFormatError occurs when a config file extension does not map
// to a known [Format].
type UnsupportedFormatError struct {
	Ext string
}

// Error implements the error interface.
func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported config file extension: %q", e.Ext)
}

// FormatOf picks the [Format] for a config file from its extension.
// Extensions are matched case-insensitively.
func FormatOf(name string) (Format, error) {
	switch ext := path.Ext(name); strings.ToLower(ext) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	default:
		return "", UnsupportedFormatError{Ext: ext}
	}
}

// Document is a [Source] holding a single YAML or JSON document. The
// underlying reader is consumed, and closed if it is an [io.Closer], the
// first time the document is applied.
type Document struct {
	format Format
	r      io.Reader
}

// Decode returns a [Document] which parses r as f.
func Decode(f Format, r io.Reader) Document {
	return Document{format: f, r: r}
}

// FromYaml returns a [Document] parsing r as YAML.
func FromYaml(r io.Reader) Document {
	return Decode(YAML, r)
}

// FromJson returns a [Document] parsing r as JSON.
func FromJson(r io.Reader) Document {
	return Decode(JSON, r)
}

// FromFile returns a [Document] for the file at name in fsys, with the
// format chosen by [FormatOf]. The file is not opened until the document
// is applied.
func FromFile(fsys fs.FS, name string) (Document, error) {
	f, err := FormatOf(name)
	if err != nil {
		return Document{}, err
	}
	return Decode(f, NewFileReader(fsys, name)), nil
}

// DecodeError occurs when a [Document] is not valid in its [Format].
type DecodeError struct {
	Format Format
	Cause  error
}

// Error implements the error interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Format, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// Apply implements the [Source] interface. A blank document sets nothing.
func (d Document) Apply(store Store) (err error) {
	defer try.Close(&err, d.r)

	b, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}

	m := make(map[string]any)
	switch d.format {
	case YAML:
		err = yaml.Unmarshal(b, &m)
	case JSON:
		err = json.Unmarshal(b, &m)
	default:
		err = UnsupportedFormatError{Ext: string(d.format)}
	}
	if err != nil {
		return DecodeError{Format: d.format, Cause: err}
	}
	return Map(m).Apply(store)
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"io"
	"io/fs"
	"sync"
)

// FileReader reads a config file which is opened on the first Read, so
// a missing file surfaces when its layer is applied rather than when the
// layers are assembled.
type FileReader struct {
	fsys fs.FS
	name string

	mu     sync.Mutex
	opened bool
	closed bool
	f      fs.File
	err    error
}

// NewFileReader returns a FileReader for name within fsys.
func NewFileReader(fsys fs.FS, name string) *FileReader {
	return &FileReader{
		fsys: fsys,
		name: name,
	}
}

// Read implements the io.Reader interface. A failure to open the file is
// returned from every call and reading after Close fails with [fs.ErrClosed].
func (r *FileReader) Read(b []byte) (int, error) {
	f, err := r.file()
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, io.EOF
	}
	return f.Read(b)
}

func (r *FileReader) file() (fs.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, &fs.PathError{Op: "read", Path: r.name, Err: fs.ErrClosed}
	}
	if !r.opened {
		r.opened = true
		r.f, r.err = r.fsys.Open(r.name)
	}
	return r.f, r.err
}

// Close implements the io.Closer interface. The file is never opened if it
// had not been read yet.
func (r *FileReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package kv is an in-memory key/value store exposed over HTTP. The key is
// taken from the "key" query parameter and values are raw request bodies.
package kv

import (
	"bytes"
	"context"
	"sync"

	"github.com/z5labs/wirehttp/http1"
)

// Methods are the request methods [Store.Handle] understands.
var Methods = []http1.Method{http1.MethodGet, http1.MethodPut, http1.MethodDelete}

// Pattern matches the request targets the store should be routed for.
const Pattern = `^/kv(\?.*)?$`

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewStore returns an empty [Store].
func NewStore() *Store {
	return &Store{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// Set stores a copy of value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = bytes.Clone(value)
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// Handle implements router.Handler.
func (s *Store) Handle(ctx context.Context, req http1.Request) http1.Response {
	key, ok := req.Query("key")
	if !ok {
		return http1.Text(400, "Missing key parameter")
	}

	switch req.Method {
	case http1.MethodGet:
		v, ok := s.Get(key)
		if !ok {
			return http1.Text(404, "Key not found")
		}
		resp := http1.Text(200, "")
		resp.Body = v
		return resp
	case http1.MethodPut:
		s.Set(key, req.Body)
		return http1.Text(200, "OK")
	case http1.MethodDelete:
		if !s.Delete(key) {
			return http1.Text(404, "Key not found")
		}
		return http1.Text(200, "Deleted")
	default:
		return http1.Text(405, "Method Not Allowed")
	}
}

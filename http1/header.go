// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"sort"
	"strings"
)

// Header maps a case-preserved header name to its value. Setting the
// same name twice keeps the last value.
type Header map[string]string

// Get returns the value for name. An exact match is preferred, otherwise
// names are compared case-insensitively.
func (h Header) Get(name string) string {
	v, _ := h.lookup(name)
	return v
}

// Has reports whether a header with the given name is present, ignoring case.
func (h Header) Has(name string) bool {
	_, ok := h.lookup(name)
	return ok
}

func (h Header) lookup(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (h Header) sortedNames() []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether the server is able to take traffic.
package health

import (
	"context"
	"strings"
	"sync"

	"github.com/z5labs/wirehttp/http1"
	"github.com/z5labs/wirehttp/router"
)

// Metric represents anything that can report its health status.
type Metric interface {
	Healthy(context.Context) bool
}

// Binary represents a health.Metric that is either healthy or not.
// The zero value is healthy.
type Binary struct {
	mu        sync.Mutex
	unhealthy bool
}

// Set forces the state of Binary.
func (m *Binary) Set(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unhealthy = !healthy
}

// Healthy implements the Metric interface.
func (m *Binary) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unhealthy
}

// AndMetric represents multiple Metrics all and'd together.
type AndMetric struct {
	metrics []Metric
}

// And returns a Metric where all the underlying Metrics healthy
// states are joined together via the logical and (&&) operator.
func And(metrics ...Metric) AndMetric {
	return AndMetric{
		metrics: metrics,
	}
}

// Healthy implements the Metric interface.
func (m AndMetric) Healthy(ctx context.Context) bool {
	for _, metric := range m.metrics {
		if !metric.Healthy(ctx) {
			return false
		}
	}
	return true
}

// Middleware answers GET requests for path, ignoring any query string,
// with 200 OK while every metric is healthy and 503 Service Unavailable
// otherwise. Every other request passes through.
func Middleware(path string, metrics ...Metric) router.Middleware {
	m := And(metrics...)

	return router.MiddlewareFunc(func(ctx context.Context, req *http1.Request, resp *http1.Response) bool {
		if req.Method != http1.MethodGet {
			return false
		}
		target, _, _ := strings.Cut(req.Path, "?")
		if target != path {
			return false
		}

		if !m.Healthy(ctx) {
			*resp = http1.Text(503, "Service Unavailable")
			return true
		}
		*resp = http1.Text(200, "OK")
		return true
	})
}

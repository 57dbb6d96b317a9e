// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health provides health reporting primitives for the HTTP runtime probes.
package health

import (
	"context"
	"sync"
)

// Metric represents anything that can report its health status.
type Metric interface {
	Healthy(context.Context) bool
}

// Binary represents a health.Metric that is either healthy or not.
// The default value represents a healthy state.
type Binary struct {
	mu        sync.Mutex
	unhealthy bool
}

// Toggle toggles the state of Binary.
func (m *Binary) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unhealthy = !m.unhealthy
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

// OrMetric represents multiple Metrics all or'd together.
type OrMetric struct {
	metrics []Metric
}

// Or returns a Metric where all the underlying Metrics healthy
// states are joined together via the logical or (||) operator.
func Or(metrics ...Metric) OrMetric {
	return OrMetric{
		metrics: metrics,
	}
}

// Healthy implements the Metric interface.
func (m OrMetric) Healthy(ctx context.Context) bool {
	for _, metric := range m.metrics {
		if metric.Healthy(ctx) {
			return true
		}
	}
	return false
}

// Started reports whether the service has finished starting up.
// The zero value reports not started.
type Started struct {
	mu      sync.Mutex
	started bool
}

// Started marks the service as having completed startup.
func (m *Started) Started() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
}

// Healthy implements the Metric interface.
func (m *Started) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Liveness reports whether the service is alive.
// The zero value reports alive.
type Liveness struct {
	mu   sync.Mutex
	dead bool
}

// Alive marks the service as alive.
func (m *Liveness) Alive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = false
}

// Dead marks the service as dead.
func (m *Liveness) Dead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = true
}

// Healthy implements the Metric interface.
func (m *Liveness) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.dead
}

// Readiness reports whether the service is ready to accept traffic.
// The zero value reports ready.
type Readiness struct {
	mu       sync.Mutex
	notReady bool
}

// Ready marks the service as ready to accept traffic.
func (m *Readiness) Ready() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notReady = false
}

// NotReady marks the service as not ready to accept traffic.
func (m *Readiness) NotReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notReady = true
}

// Healthy implements the Metric interface.
func (m *Readiness) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.notReady
}

// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named counters and gauges of a library context. Values are whatever the
// writer stores; Exporter publishes the numeric ones.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry is a concurrent map of metric name to value.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{metrics: make(map[string]any)}
}

// Set stores a gauge.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.metrics[key] = value
	mr.updated = time.Now()
}

// SetAll stores several gauges under one lock so a scrape never sees half
// of a refresh.
func (mr *MetricsRegistry) SetAll(values map[string]any) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	for k, v := range values {
		mr.metrics[k] = v
	}
	mr.updated = time.Now()
}

// Add moves an int64 counter by delta. A key holding a non-int64 value is
// reset to delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	cur, _ := mr.metrics[key].(int64)
	mr.metrics[key] = cur + delta
	mr.updated = time.Now()
}

// Delete drops a metric.
func (mr *MetricsRegistry) Delete(key string) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	delete(mr.metrics, key)
	mr.updated = time.Now()
}

// Updated is the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot copies the current values.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

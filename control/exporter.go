// control/exporter.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus view over MetricsRegistry.

package control

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes numeric registry entries as gauges. Non-numeric values
// are skipped.
type Exporter struct {
	namespace string
	metrics   *MetricsRegistry
	registry  *prometheus.Registry
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter creates an exporter with its own prometheus registry, also
// carrying the Go runtime collector.
func NewExporter(namespace string, mr *MetricsRegistry) *Exporter {
	e := &Exporter{namespace: namespace, metrics: mr, registry: prometheus.NewRegistry()}
	e.registry.MustRegister(e, collectors.NewGoCollector())
	return e
}

// Describe sends nothing: the metric set changes at runtime, which makes
// this an unchecked collector.
func (e *Exporter) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.metrics.GetSnapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := toFloat(snap[k])
		if !ok {
			continue
		}
		desc := prometheus.NewDesc(prometheus.BuildFQName(e.namespace, "", MetricName(k)), k, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
}

// Registry exposes the underlying prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// MetricName maps a dotted registry key onto a valid metric name.
func MetricName(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

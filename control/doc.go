// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package control holds the runtime state shared by a library context:
// socket defaults that new sockets read (ConfigStore and the Key* names),
// counters folded from socket stats (MetricsRegistry), named probes
// (DebugProbes), and a polling file watcher that feeds config reloads.
// Exporter publishes numeric metrics to Prometheus.
package control

// File: api/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime control surface of a library context, plus the small contracts
// its parts are checked against.

package api

// Control exposes runtime-tunable socket defaults, metrics and probes.
// Config keys are the control.Key* names; SetConfig rejects a batch
// atomically when any well-known key has the wrong type.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	// Stats merges metrics with the current probe output.
	Stats() map[string]any
	SetMetric(key string, value any)
	// OnReload runs fn after every successful SetConfig.
	OnReload(fn func())
	RegisterDebugProbe(name string, fn func() any)
}

// Debug is a registry of named state probes.
type Debug interface {
	DumpState() map[string]any
	RegisterProbe(name string, fn func() any)
}

// Ring is a bounded queue safe for many producers and consumers.
// Enqueue fails on a full ring and Dequeue on an empty one; neither blocks.
type Ring[T any] interface {
	Enqueue(item T) bool
	Dequeue() (T, bool)
	Len() int
	Cap() int
}

// GracefulShutdown is implemented by components that own goroutines or
// listeners.
type GracefulShutdown interface {
	Shutdown() error
}

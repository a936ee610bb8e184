// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"sync"
	"time"
)

// Well-known keys read by sockets when they are created.
const (
	KeySndHWM          = "socket.sndhwm"
	KeyRcvHWM          = "socket.rcvhwm"
	KeySndTimeout      = "socket.sndtimeo"
	KeyRcvTimeout      = "socket.rcvtimeo"
	KeyReconnectIvl    = "socket.reconnect_ivl"
	KeyReconnectIvlMax = "socket.reconnect_ivl_max"
	KeyMaxMsgSize      = "socket.maxmsgsize"
	KeyIPv4Only        = "socket.ipv4only"
)

// ConfigStore is a dynamic key/value map with snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: make(map[string]any)}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// Int returns key as int, or def when missing or not numeric.
func (cs *ConfigStore) Int(key string, def int) int {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Duration returns key as time.Duration. Strings are parsed with
// time.ParseDuration; integers are taken as milliseconds.
func (cs *ConfigStore) Duration(key string, def time.Duration) time.Duration {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case int:
		return time.Duration(d) * time.Millisecond
	case int64:
		return time.Duration(d) * time.Millisecond
	case string:
		if p, err := time.ParseDuration(d); err == nil {
			return p
		}
	}
	return def
}

// Bool returns key as bool.
func (cs *ConfigStore) Bool(key string, def bool) bool {
	if v, ok := cs.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// SetConfig merges new values and notifies listeners synchronously, after
// the store is unlocked.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

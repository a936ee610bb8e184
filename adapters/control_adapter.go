// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
)

// ControlAdapter bundles config, metrics and debug probes behind api.Control.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var (
	_ api.Control = (*ControlAdapter)(nil)
	_ api.Debug   = (*control.DebugProbes)(nil)
)

// NewControlAdapter creates an adapter with platform probes registered.
func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

// Config exposes the typed config store.
func (c *ControlAdapter) Config() *control.ConfigStore { return c.config }

// Metrics exposes the metrics registry.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }

// Debug exposes the probe registry.
func (c *ControlAdapter) Debug() *control.DebugProbes { return c.debug }

// GetConfig implements api.Control.
func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig implements api.Control. Well-known socket keys are type checked;
// nothing is applied when any of them is invalid.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	for k, v := range cfg {
		if err := validateKey(k, v); err != nil {
			return err
		}
	}
	c.config.SetConfig(cfg)
	return nil
}

// Stats implements api.Control: metrics plus debug probe output under the
// "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

// OnReload implements api.Control.
func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

// SetMetric implements api.Control.
func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

// RegisterDebugProbe implements api.Control.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// UnregisterDebugProbe removes a probe registered earlier.
func (c *ControlAdapter) UnregisterDebugProbe(name string) {
	c.debug.UnregisterProbe(name)
}

func validateKey(key string, v any) error {
	bad := func() error {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid config value").
			WithContext("key", key).
			WithContext("value", v)
	}
	switch key {
	case control.KeySndHWM, control.KeyRcvHWM, control.KeyMaxMsgSize:
		n, ok := v.(int)
		if !ok || n < 0 {
			return bad()
		}
	case control.KeySndTimeout, control.KeyRcvTimeout, control.KeyReconnectIvl, control.KeyReconnectIvlMax:
		switch d := v.(type) {
		case time.Duration, int:
		case string:
			if _, err := time.ParseDuration(d); err != nil {
				return bad()
			}
		default:
			return bad()
		}
	case control.KeyIPv4Only:
		if _, ok := v.(bool); !ok {
			return bad()
		}
	}
	return nil
}

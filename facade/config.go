// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// YAML configuration of a HioloadMQ context.

package facade

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/socket"
)

// Config is the root configuration.
type Config struct {
	Socket     SocketConfig     `yaml:"socket"`
	Transports TransportsConfig `yaml:"transports"`
	Pool       PoolConfig       `yaml:"pool"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Reload     ReloadConfig     `yaml:"reload"`
}

// SocketConfig holds defaults applied to every new socket. They can be
// changed at runtime through Control or a reloaded file. A zero timeout
// selects the default, which waits forever.
type SocketConfig struct {
	SndHWM          int           `yaml:"sndhwm"`
	RcvHWM          int           `yaml:"rcvhwm"`
	SndTimeout      time.Duration `yaml:"sndtimeo"`
	RcvTimeout      time.Duration `yaml:"rcvtimeo"`
	ReconnectIvl    time.Duration `yaml:"reconnect_ivl"`
	ReconnectIvlMax time.Duration `yaml:"reconnect_ivl_max"`
	MaxMsgSize      int64         `yaml:"maxmsgsize"`
	IPv4Only        *bool         `yaml:"ipv4only"`
	MailboxSize     int           `yaml:"mailbox_size"`
}

// TransportsConfig selects the network transports. inproc is always on.
type TransportsConfig struct {
	TCP              *bool         `yaml:"tcp"`
	IPC              *bool         `yaml:"ipc"`
	WS               *bool         `yaml:"ws"`
	ZMTP             *bool         `yaml:"zmtp"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// PoolConfig sizes the shared frame buffer pool.
type PoolConfig struct {
	SlabCapacity int `yaml:"slab_capacity"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables
// the HTTP listener; metrics are still collected.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
	Path      string `yaml:"path"`
}

// ReloadConfig enables watching the file the config was loaded from.
type ReloadConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func boolPtr(b bool) *bool { return &b }

func (c *Config) applyDefaults() {
	def := socket.DefaultOptions()
	s := &c.Socket
	if s.SndHWM == 0 {
		s.SndHWM = def.SndHWM
	}
	if s.RcvHWM == 0 {
		s.RcvHWM = def.RcvHWM
	}
	if s.SndTimeout == 0 {
		s.SndTimeout = def.SndTimeout
	}
	if s.RcvTimeout == 0 {
		s.RcvTimeout = def.RcvTimeout
	}
	if s.ReconnectIvl == 0 {
		s.ReconnectIvl = def.ReconnectIvl
	}
	if s.IPv4Only == nil {
		s.IPv4Only = boolPtr(def.IPv4Only)
	}

	t := &c.Transports
	for _, p := range []**bool{&t.TCP, &t.IPC, &t.WS, &t.ZMTP} {
		if *p == nil {
			*p = boolPtr(true)
		}
	}
	if t.HandshakeTimeout == 0 {
		t.HandshakeTimeout = 5 * time.Second
	}

	if c.Pool.SlabCapacity == 0 {
		c.Pool.SlabCapacity = pool.DefaultSlabCapacity
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "hioload_mq"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Reload.Interval == 0 {
		c.Reload.Interval = control.DefaultWatchInterval
	}
}

// Validate checks value ranges. Defaults must have been applied.
func (c *Config) Validate() error {
	s := c.Socket
	if s.SndHWM < 0 || s.RcvHWM < 0 {
		return fmt.Errorf("socket: hwm must not be negative")
	}
	if s.ReconnectIvl < 0 || s.ReconnectIvlMax < 0 {
		return fmt.Errorf("socket: reconnect intervals must not be negative")
	}
	if s.MaxMsgSize < 0 {
		return fmt.Errorf("socket: maxmsgsize must not be negative")
	}
	if s.MailboxSize < 0 {
		return fmt.Errorf("socket: mailbox_size must not be negative")
	}
	if c.Transports.HandshakeTimeout < 0 {
		return fmt.Errorf("transports: handshake_timeout must not be negative")
	}
	if c.Pool.SlabCapacity < 0 {
		return fmt.Errorf("pool: slab_capacity must not be negative")
	}
	if c.Reload.Interval < 0 {
		return fmt.Errorf("reload: interval must not be negative")
	}
	return nil
}

// values maps the socket defaults onto control store keys.
func (s SocketConfig) values() map[string]any {
	return map[string]any{
		control.KeySndHWM:          s.SndHWM,
		control.KeyRcvHWM:          s.RcvHWM,
		control.KeySndTimeout:      s.SndTimeout,
		control.KeyRcvTimeout:      s.RcvTimeout,
		control.KeyReconnectIvl:    s.ReconnectIvl,
		control.KeyReconnectIvlMax: s.ReconnectIvlMax,
		control.KeyMaxMsgSize:      int(s.MaxMsgSize),
		control.KeyIPv4Only:        s.IPv4Only == nil || *s.IPv4Only,
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// File: internal/logger/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Environment:
//   - HIOLOAD_MQ_LOG_LEVEL: subsystem=level,...,default
//     example: socket=debug,transport=warn,info
//   - HIOLOAD_MQ_LOG_FORMAT: text or json

package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	envLevel  = "HIOLOAD_MQ_LOG_LEVEL"
	envFormat = "HIOLOAD_MQ_LOG_FORMAT"
)

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config is the parsed logging environment.
type Config struct {
	DefaultLevel    slog.Level
	SubsystemLevels map[string]slog.Level
	Format          Format
}

// LevelFor returns the effective level of a subsystem.
func (c *Config) LevelFor(subsystem string) slog.Level {
	if lvl, ok := c.SubsystemLevels[subsystem]; ok {
		return lvl
	}
	return c.DefaultLevel
}

var (
	configCache *Config
	configOnce  sync.Once
)

// ConfigFromEnv parses the environment once per process.
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache = ParseConfig(os.Getenv(envLevel), os.Getenv(envFormat))
	})
	return configCache
}

// ParseConfig builds a Config from raw level and format strings. Unknown
// entries are ignored.
func ParseConfig(levels, format string) *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
	}
	for _, part := range strings.Split(levels, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, found := strings.Cut(part, "=")
		if !found {
			if l, ok := ParseLevel(name); ok {
				cfg.DefaultLevel = l
			}
			continue
		}
		if l, ok := ParseLevel(strings.TrimSpace(lvl)); ok {
			cfg.SubsystemLevels[strings.TrimSpace(name)] = l
		}
	}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		cfg.Format = FormatJSON
	}
	return cfg
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

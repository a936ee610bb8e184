// File: internal/logger/logger.go
// Package logger provides per-subsystem slog loggers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
//	var log = logger.Logger("socket")
//	log.Debug("pipe attached", "pipe", id)

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	loggers  sync.Map // subsystem -> *slog.Logger
	levels   sync.Map // subsystem -> *slog.LevelVar
	outputMu sync.RWMutex
	output   io.Writer = os.Stderr
)

// Logger returns the cached logger of a subsystem.
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}
	cfg := ConfigFromEnv()
	lv := new(slog.LevelVar)
	lv.Set(cfg.LevelFor(subsystem))

	opts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(writer{}, opts)
	} else {
		h = slog.NewTextHandler(writer{}, opts)
	}
	l := slog.New(h).With("subsystem", subsystem)

	actual, loaded := loggers.LoadOrStore(subsystem, l)
	if !loaded {
		levels.Store(subsystem, lv)
	}
	return actual.(*slog.Logger)
}

// SetLevel changes a subsystem level at runtime.
func SetLevel(subsystem string, level slog.Level) {
	Logger(subsystem)
	if v, ok := levels.Load(subsystem); ok {
		v.(*slog.LevelVar).Set(level)
	}
}

// SetOutput redirects every logger, including already created ones.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// Discard returns a logger dropping all records.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type writer struct{}

func (writer) Write(p []byte) (int, error) {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	return w.Write(p)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

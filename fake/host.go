// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake socket host for transport tests.

package fake

import (
	"log/slog"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/internal/logger"
)

// Host is an api.Host whose sink records every command.
type Host struct {
	Cmds *Sink
	Cfg  api.PipeConfig
	Kind api.SocketType
	ID   []byte
	Log  *slog.Logger
}

var _ api.Host = (*Host)(nil)

// NewHost creates a host of type t with a recording sink.
func NewHost(t api.SocketType, id string) *Host {
	return &Host{
		Cmds: NewSink(),
		Cfg:  api.PipeConfig{SndHWM: 1000, RcvHWM: 1000, IPv4Only: true},
		Kind: t,
		ID:   []byte(id),
		Log:  logger.Discard(),
	}
}

// Sink implements api.Host.
func (h *Host) Sink() api.Sink { return h.Cmds }

// PipeConfig implements api.Host.
func (h *Host) PipeConfig() api.PipeConfig { return h.Cfg }

// Type implements api.Host.
func (h *Host) Type() api.SocketType { return h.Kind }

// Identity implements api.Host.
func (h *Host) Identity() []byte { return h.ID }

// Logger implements api.Host.
func (h *Host) Logger() *slog.Logger { return h.Log }

// Attached returns the pipes handed over with CmdAttach so far.
func (h *Host) Attached() []api.Pipe {
	var out []api.Pipe
	for _, c := range h.Cmds.Commands() {
		if c.Kind == api.CmdAttach {
			out = append(out, c.Pipe)
		}
	}
	return out
}

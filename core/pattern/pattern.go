// File: core/pattern/pattern.go
// Package pattern implements socket pattern state machines over the shared
// routing building blocks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Pattern is driven by exactly one goroutine. All operations are single
// non-blocking attempts; api.ErrAgain reports that no progress was possible.

package pattern

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// Pattern is the behaviour of one socket type.
type Pattern interface {
	// AttachPipe registers a new pipe with the pattern.
	AttachPipe(p api.Pipe) error
	// Send hands one frame to the outbound side. SndMore in flags marks a
	// continuation frame.
	Send(m *msg.Msg, flags api.Flags) error
	// Recv delivers one inbound frame.
	Recv(m *msg.Msg, flags api.Flags) error
	// HasIn reports whether Recv would succeed. It may prefetch.
	HasIn() bool
	// HasOut reports whether Send would succeed.
	HasOut() bool

	ReadActivated(p api.Pipe)
	WriteActivated(p api.Pipe)
	PipeTerminated(p api.Pipe)

	// Close releases buffered frames.
	Close()
}

// New returns the pattern implementing t.
func New(t api.SocketType) (Pattern, error) {
	switch t {
	case api.Dealer:
		return NewRequestRouter(), nil
	case api.Push:
		return NewPush(), nil
	case api.Pull:
		return NewPull(), nil
	default:
		return nil, api.NewError(api.ErrCodeNotSupported, "socket type not implemented").
			WithContext("type", t.String())
	}
}

func notSupported(op string, t api.SocketType) error {
	return api.NewError(api.ErrCodeNotSupported, op+" not supported by socket type").
		WithContext("type", t.String())
}

func applyFlags(m *msg.Msg, flags api.Flags) {
	m.SetMore(flags&api.SndMore != 0)
}

// File: core/protocol/greeting.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Greeting sent by both peers as the first command frame of a connection.

package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// Greeting identifies the peer socket.
type Greeting struct {
	Signature  string `msgpack:"sig"`
	Version    uint8  `msgpack:"ver"`
	SocketType string `msgpack:"type"`
	Identity   []byte `msgpack:"id,omitempty"`
}

// NewGreeting builds the local greeting.
func NewGreeting(t api.SocketType, identity []byte) Greeting {
	return Greeting{
		Signature:  Signature,
		Version:    ProtocolVersion,
		SocketType: t.String(),
		Identity:   identity,
	}
}

// Msg encodes g as a command frame.
func (g Greeting) Msg() (msg.Msg, error) {
	b, err := msgpack.Marshal(&g)
	if err != nil {
		return msg.Msg{}, fmt.Errorf("encode greeting: %w", err)
	}
	m := msg.New(b)
	m.SetFlags(msg.Command)
	return m, nil
}

// ParseGreeting decodes and validates a greeting frame.
func ParseGreeting(m *msg.Msg) (Greeting, error) {
	var g Greeting
	if !m.IsCommand() || m.More() {
		return g, fmt.Errorf("%w: greeting must be a single command frame", api.ErrProtocol)
	}
	if err := msgpack.Unmarshal(m.Bytes(), &g); err != nil {
		return g, fmt.Errorf("%w: decode greeting: %v", api.ErrProtocol, err)
	}
	if g.Signature != Signature {
		return g, fmt.Errorf("%w: bad signature %q", api.ErrProtocol, g.Signature)
	}
	if g.Version != ProtocolVersion {
		return g, fmt.Errorf("%w: unsupported version %d", api.ErrProtocol, g.Version)
	}
	return g, nil
}

// Type returns the peer socket type.
func (g Greeting) Type() (api.SocketType, error) {
	return api.ParseSocketType(g.SocketType)
}

// Compatible reports whether sockets of types a and b may be connected.
func Compatible(a, b api.SocketType) bool {
	switch a {
	case api.Dealer:
		return b == api.Dealer || b == api.Rep || b == api.Req
	case api.Req:
		return b == api.Rep || b == api.Dealer
	case api.Rep:
		return b == api.Req || b == api.Dealer
	case api.Push:
		return b == api.Pull
	case api.Pull:
		return b == api.Push
	case api.Pub:
		return b == api.Sub
	case api.Sub:
		return b == api.Pub
	}
	return false
}

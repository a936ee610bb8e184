// File: transport/inproc/inproc.go
// Package inproc connects sockets of one process directly with pipe pairs.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// No engine sits between the sockets: both pipe ends are owned by sockets
// and every readiness change lands in a socket mailbox.

package inproc

import (
	"context"
	"io"
	"sync"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/pipe"
	"github.com/momentics/hioload-mq/core/protocol"
)

// Scheme served by this transport.
const Scheme = "inproc"

// Registry maps endpoint names to bound sockets.
type Registry struct {
	mu    sync.Mutex
	bound map[string]*binding
}

type binding struct {
	name string
	host api.Host
}

// NewRegistry creates an empty name registry.
func NewRegistry() *Registry {
	return &Registry{bound: make(map[string]*binding)}
}

// Names returns the currently bound endpoint names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.bound))
	for n := range r.bound {
		out = append(out, n)
	}
	return out
}

// Transport implements api.Transport over a Registry.
type Transport struct {
	reg *Registry
}

var _ api.Transport = (*Transport)(nil)

// New creates a transport. A nil registry gets a private one.
func New(reg *Registry) *Transport {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Transport{reg: reg}
}

// Schemes implements api.Transport.
func (t *Transport) Schemes() []string { return []string{Scheme} }

// Bind implements api.Transport.
func (t *Transport) Bind(_ context.Context, name string, host api.Host) (io.Closer, error) {
	if name == "" {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "empty inproc name")
	}
	t.reg.mu.Lock()
	defer t.reg.mu.Unlock()
	if _, ok := t.reg.bound[name]; ok {
		return nil, api.NewError(api.ErrCodeAddrInUse, "inproc name already bound").
			WithContext("name", name)
	}
	b := &binding{name: name, host: host}
	t.reg.bound[name] = b
	host.Logger().Debug("inproc bound", "name", name)
	return &unbinder{reg: t.reg, b: b}, nil
}

// Connect implements api.Transport. The bound socket must exist.
func (t *Transport) Connect(_ context.Context, name string, host api.Host) (io.Closer, error) {
	t.reg.mu.Lock()
	b, ok := t.reg.bound[name]
	t.reg.mu.Unlock()
	if !ok {
		return nil, api.NewError(api.ErrCodeConnRefused, "no inproc endpoint").
			WithContext("name", name)
	}
	if !protocol.Compatible(host.Type(), b.host.Type()) {
		return nil, api.NewError(api.ErrCodeProtocol, "incompatible socket types").
			WithContext("local", host.Type().String()).
			WithContext("remote", b.host.Type().String())
	}

	lc, rc := host.PipeConfig(), b.host.PipeConfig()
	local, remote := pipe.NewPair(pipe.Config{
		AToB: sumHWM(lc.SndHWM, rc.RcvHWM),
		BToA: sumHWM(rc.SndHWM, lc.RcvHWM),
	}, host.Sink(), b.host.Sink())

	host.Sink().Post(api.Command{Kind: api.CmdAttach, Pipe: local})
	b.host.Sink().Post(api.Command{Kind: api.CmdAttach, Pipe: remote})
	host.Logger().Debug("inproc connected", "name", name, "pipe", local.ID())
	return &connection{host: host, pipe: local}, nil
}

// sumHWM combines the sender and receiver limits of one direction. Zero on
// either side means unlimited.
func sumHWM(snd, rcv int) int {
	if snd == 0 || rcv == 0 {
		return 0
	}
	return snd + rcv
}

type unbinder struct {
	reg  *Registry
	b    *binding
	once sync.Once
}

// Close releases the name. Pipes already connected stay up until their
// owners close them.
func (u *unbinder) Close() error {
	u.once.Do(func() {
		u.reg.mu.Lock()
		if u.reg.bound[u.b.name] == u.b {
			delete(u.reg.bound, u.b.name)
		}
		u.reg.mu.Unlock()
	})
	return nil
}

type connection struct {
	host api.Host
	pipe *pipe.Pipe
	once sync.Once
}

// Close terminates the connection's pipe and tells the owning socket to drop
// it as well.
func (c *connection) Close() error {
	c.once.Do(func() {
		c.pipe.Terminate()
		c.host.Sink().Post(api.Command{Kind: api.CmdPipeTerm, Pipe: c.pipe})
	})
	return nil
}

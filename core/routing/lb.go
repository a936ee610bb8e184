// File: core/routing/lb.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package routing

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// LoadBalancer spreads outbound messages across pipes in round robin,
// skipping those at their high watermark. Write capacity is probed on every
// send rather than cached.
type LoadBalancer struct {
	reg    registry
	cursor int
	// more is set while a multi-frame message is going to the pipe at cursor.
	more bool
	// dropping discards the rest of a message whose pipe went away.
	dropping bool
}

// NewLoadBalancer creates an empty load balancer.
func NewLoadBalancer() *LoadBalancer {
	return &LoadBalancer{reg: newRegistry()}
}

// Attach appends p to the rotation.
func (lb *LoadBalancer) Attach(p api.Pipe) error {
	return lb.reg.add(p, true)
}

// Activated is a no-op: capacity is re-checked lazily by Send and HasOut.
func (lb *LoadBalancer) Activated(api.Pipe) {}

// Terminated removes p and reports whether no pipes remain. The remainder of
// a message being written to p is discarded.
func (lb *LoadBalancer) Terminated(p api.Pipe) bool {
	pos, ok := lb.reg.remove(p)
	if ok {
		if lb.more && pos == lb.cursor {
			lb.more = false
			lb.dropping = true
		}
		lb.cursor = adjust(pos, lb.cursor, lb.reg.len())
	}
	return lb.reg.len() == 0
}

// Send writes m to the next pipe with capacity. All frames of a message go to
// the same pipe. It returns api.ErrAgain, leaving m and the cursor untouched,
// when no pipe can accept a new message.
func (lb *LoadBalancer) Send(m *msg.Msg) error {
	more := m.More()

	if lb.dropping {
		m.Close()
		lb.dropping = more
		return nil
	}

	if lb.more {
		if lb.reg.at(lb.cursor).pipe.Write(m) {
			lb.finish(lb.cursor, more)
			return nil
		}
		// The pipe was terminated under us; its notification is still queued.
		m.Close()
		lb.more = false
		lb.dropping = more
		return nil
	}

	n := lb.reg.len()
	for i := 0; i < n; i++ {
		pos := (lb.cursor + i) % n
		if lb.reg.at(pos).pipe.Write(m) {
			lb.finish(pos, more)
			return nil
		}
	}
	return api.ErrAgain
}

func (lb *LoadBalancer) finish(pos int, more bool) {
	lb.more = more
	if more {
		lb.cursor = pos
		return
	}
	lb.cursor = (pos + 1) % lb.reg.len()
}

// HasOut reports whether Send would accept a frame.
func (lb *LoadBalancer) HasOut() bool {
	if lb.more || lb.dropping {
		return true
	}
	for i := 0; i < lb.reg.len(); i++ {
		if lb.reg.at(i).pipe.CheckWrite() {
			return true
		}
	}
	return false
}

// Len returns the number of attached pipes.
func (lb *LoadBalancer) Len() int { return lb.reg.len() }

// Pipes returns attached pipes in rotation order.
func (lb *LoadBalancer) Pipes() []api.Pipe { return lb.reg.pipes() }

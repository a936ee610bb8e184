// File: core/pattern/request_router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pattern

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/routing"
)

// RequestRouter is the bidirectional request/reply pattern. Every pipe is
// tracked by both the fair queue and the load balancer.
type RequestRouter struct {
	in inbound
	lb *routing.LoadBalancer
}

var _ Pattern = (*RequestRouter)(nil)

// NewRequestRouter creates a router with no pipes.
func NewRequestRouter() *RequestRouter {
	return &RequestRouter{in: newInbound(), lb: routing.NewLoadBalancer()}
}

// AttachPipe implements Pattern.
func (r *RequestRouter) AttachPipe(p api.Pipe) error {
	if err := r.in.fq.Attach(p); err != nil {
		return err
	}
	if err := r.lb.Attach(p); err != nil {
		r.in.fq.Terminated(p)
		return err
	}
	return nil
}

// Send implements Pattern.
func (r *RequestRouter) Send(m *msg.Msg, flags api.Flags) error {
	applyFlags(m, flags)
	return r.lb.Send(m)
}

// Recv implements Pattern.
func (r *RequestRouter) Recv(m *msg.Msg, _ api.Flags) error {
	return r.in.recv(m)
}

// HasIn implements Pattern. A positive answer buffers the frame.
func (r *RequestRouter) HasIn() bool { return r.in.hasIn() }

// HasOut implements Pattern.
func (r *RequestRouter) HasOut() bool { return r.lb.HasOut() }

// ReadActivated implements Pattern.
func (r *RequestRouter) ReadActivated(p api.Pipe) { r.in.fq.Activated(p) }

// WriteActivated implements Pattern.
func (r *RequestRouter) WriteActivated(p api.Pipe) { r.lb.Activated(p) }

// PipeTerminated implements Pattern.
func (r *RequestRouter) PipeTerminated(p api.Pipe) {
	r.in.fq.Terminated(p)
	r.lb.Terminated(p)
}

// Close implements Pattern.
func (r *RequestRouter) Close() { r.in.close() }

// Pipes returns attached pipes in inbound rotation order.
func (r *RequestRouter) Pipes() []api.Pipe { return r.in.fq.Pipes() }

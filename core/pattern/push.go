// File: core/pattern/push.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pattern

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/routing"
)

// Push only sends, load-balanced across pipes.
type Push struct {
	lb *routing.LoadBalancer
}

var _ Pattern = (*Push)(nil)

// NewPush creates an empty push pattern.
func NewPush() *Push { return &Push{lb: routing.NewLoadBalancer()} }

// AttachPipe implements Pattern.
func (p *Push) AttachPipe(pipe api.Pipe) error { return p.lb.Attach(pipe) }

// Send implements Pattern.
func (p *Push) Send(m *msg.Msg, flags api.Flags) error {
	applyFlags(m, flags)
	return p.lb.Send(m)
}

// Recv implements Pattern. Push never receives.
func (p *Push) Recv(*msg.Msg, api.Flags) error { return notSupported("recv", api.Push) }

// HasIn implements Pattern.
func (p *Push) HasIn() bool { return false }

// HasOut implements Pattern.
func (p *Push) HasOut() bool { return p.lb.HasOut() }

// ReadActivated implements Pattern. Inbound data on a push pipe is never read.
func (p *Push) ReadActivated(api.Pipe) {}

// WriteActivated implements Pattern.
func (p *Push) WriteActivated(pipe api.Pipe) { p.lb.Activated(pipe) }

// PipeTerminated implements Pattern.
func (p *Push) PipeTerminated(pipe api.Pipe) { p.lb.Terminated(pipe) }

// Close implements Pattern.
func (p *Push) Close() {}

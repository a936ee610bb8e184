// File: core/pattern/pull.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pattern

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// Pull only receives, fair-queued across pipes.
type Pull struct {
	in inbound
}

var _ Pattern = (*Pull)(nil)

// NewPull creates an empty pull pattern.
func NewPull() *Pull { return &Pull{in: newInbound()} }

// AttachPipe implements Pattern.
func (p *Pull) AttachPipe(pipe api.Pipe) error { return p.in.fq.Attach(pipe) }

// Send implements Pattern. Pull never sends.
func (p *Pull) Send(*msg.Msg, api.Flags) error { return notSupported("send", api.Pull) }

// Recv implements Pattern.
func (p *Pull) Recv(m *msg.Msg, _ api.Flags) error { return p.in.recv(m) }

// HasIn implements Pattern. A positive answer buffers the frame.
func (p *Pull) HasIn() bool { return p.in.hasIn() }

// HasOut implements Pattern.
func (p *Pull) HasOut() bool { return false }

// ReadActivated implements Pattern.
func (p *Pull) ReadActivated(pipe api.Pipe) { p.in.fq.Activated(pipe) }

// WriteActivated implements Pattern.
func (p *Pull) WriteActivated(api.Pipe) {}

// PipeTerminated implements Pattern.
func (p *Pull) PipeTerminated(pipe api.Pipe) { p.in.fq.Terminated(pipe) }

// Close implements Pattern.
func (p *Pull) Close() { p.in.close() }

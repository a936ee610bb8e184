// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake pipe with scripted inbound frames and a switchable write capacity.

package fake

import (
	"github.com/google/uuid"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// Pipe is a single-goroutine api.Pipe for routing tests. Inbound frames are
// queued with Push/PushMessage; written frames accumulate in Written.
type Pipe struct {
	id      uuid.UUID
	Name    string
	inbound []msg.Msg

	// Capacity is the number of complete messages Write still accepts;
	// negative means unlimited.
	Capacity int

	Written    []msg.Msg
	Reads      int
	Terminated bool
	midWrite   bool
}

var _ api.Pipe = (*Pipe)(nil)

// NewPipe creates a fake pipe with unlimited write capacity.
func NewPipe(name string) *Pipe {
	return &Pipe{id: uuid.New(), Name: name, Capacity: -1}
}

// ID implements api.Pipe.
func (p *Pipe) ID() uuid.UUID { return p.id }

// Push queues one inbound frame as-is.
func (p *Pipe) Push(m msg.Msg) { p.inbound = append(p.inbound, m) }

// PushMessage queues a complete message, one frame per part.
func (p *Pipe) PushMessage(parts ...string) {
	for i, s := range parts {
		m := msg.NewString(s)
		m.SetMore(i < len(parts)-1)
		p.Push(m)
	}
}

// Pending returns the number of inbound frames not yet read.
func (p *Pipe) Pending() int { return len(p.inbound) }

// Read implements api.Pipe.
func (p *Pipe) Read(m *msg.Msg) bool {
	if len(p.inbound) == 0 {
		return false
	}
	f := p.inbound[0]
	p.inbound = p.inbound[1:]
	p.Reads++
	f.Move(m)
	return true
}

// Write implements api.Pipe.
func (p *Pipe) Write(m *msg.Msg) bool {
	if p.Terminated {
		return false
	}
	if !p.midWrite && !p.CheckWrite() {
		return false
	}
	var f msg.Msg
	m.Move(&f)
	p.midWrite = f.More()
	if !f.More() && p.Capacity > 0 {
		p.Capacity--
	}
	p.Written = append(p.Written, f)
	return true
}

// CheckRead implements api.Pipe.
func (p *Pipe) CheckRead() bool { return len(p.inbound) > 0 }

// CheckWrite implements api.Pipe.
func (p *Pipe) CheckWrite() bool {
	if p.Terminated {
		return false
	}
	return p.midWrite || p.Capacity != 0
}

// State implements api.Pipe.
func (p *Pipe) State() api.PipeState {
	switch {
	case p.Terminated:
		return api.PipeTerminated
	case len(p.inbound) > 0:
		return api.PipeActive
	default:
		return api.PipeInactive
	}
}

// Terminate implements api.Pipe.
func (p *Pipe) Terminate() { p.Terminated = true }

// WrittenStrings returns written frame payloads as strings.
func (p *Pipe) WrittenStrings() []string {
	out := make([]string, len(p.Written))
	for i := range p.Written {
		out[i] = string(p.Written[i].Bytes())
	}
	return out
}

// File: core/pipe/pipe.go
// Package pipe implements the bidirectional lock-guarded pipe pair used
// between sockets and transport engines.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Each pipe pair has two ends. An end writes into one direction and reads from
// the other. Readiness changes are reported to the owner of the affected end
// through its api.Sink:
//   - CmdActivateRead when a reader that saw an empty direction gets data;
//   - CmdActivateWrite when a writer blocked at hwm may write again;
//   - CmdPipeTerm when the peer terminated the pair.
//
// Frames of a multi-frame message are staged by the writer and become visible
// to the reader only together with the final frame.

package pipe

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// Config sets per-direction high watermarks in complete messages. Zero means
// unlimited.
type Config struct {
	// HWM for messages written by end A and read by end B.
	AToB int
	// HWM for messages written by end B and read by end A.
	BToA int
}

const (
	endRunning int32 = iota
	endTerminating
	endTerminated
)

type pair struct {
	terminated atomic.Bool
}

// Pipe is one end of a pipe pair. Write-side methods must be called by a
// single goroutine, and so must read-side methods.
type Pipe struct {
	id    uuid.UUID
	pair  *pair
	in    *channel
	out   *channel
	sink  api.Sink
	peer  *Pipe
	state atomic.Int32

	// staged holds the frames of a message being written.
	staged []msg.Msg
}

var _ api.Pipe = (*Pipe)(nil)

// NewPair creates a connected pipe pair. sinkA receives notifications for end
// A and sinkB for end B; either may be nil.
func NewPair(cfg Config, sinkA, sinkB api.Sink) (a, b *Pipe) {
	pr := &pair{}
	ab := newChannel(cfg.AToB)
	ba := newChannel(cfg.BToA)
	a = &Pipe{id: uuid.New(), pair: pr, in: ba, out: ab, sink: sinkA}
	b = &Pipe{id: uuid.New(), pair: pr, in: ab, out: ba, sink: sinkB}
	a.peer, b.peer = b, a
	return a, b
}

// ID implements api.Pipe.
func (p *Pipe) ID() uuid.UUID { return p.id }

// Peer returns the other end of the pair.
func (p *Pipe) Peer() *Pipe { return p.peer }

// SetSink rebinds the owner notified for this end. Must happen before the end
// is shared with other goroutines.
func (p *Pipe) SetSink(s api.Sink) { p.sink = s }

// Read implements api.Pipe. Reads remain possible after termination until the
// direction drains.
func (p *Pipe) Read(m *msg.Msg) bool {
	f, ok, wake := p.in.pop()
	if !ok {
		return false
	}
	f.Move(m)
	if wake {
		p.peer.notify(api.CmdActivateWrite)
	}
	return true
}

// CheckRead implements api.Pipe.
func (p *Pipe) CheckRead() bool {
	return p.in.readable()
}

// CheckWrite implements api.Pipe.
func (p *Pipe) CheckWrite() bool {
	if p.pair.terminated.Load() {
		return false
	}
	if len(p.staged) > 0 {
		return true
	}
	return !p.out.full()
}

// Write implements api.Pipe.
func (p *Pipe) Write(m *msg.Msg) bool {
	if p.pair.terminated.Load() {
		p.dropStaged()
		return false
	}
	if len(p.staged) == 0 && p.out.full() {
		return false
	}
	if m.More() {
		var f msg.Msg
		m.Move(&f)
		p.staged = append(p.staged, f)
		return true
	}
	frames := append(p.staged, *m)
	ok, wake := p.out.flush(frames)
	if !ok {
		p.staged = frames[:len(frames)-1]
		p.dropStaged()
		return false
	}
	*m = msg.Msg{}
	p.staged = nil
	if wake {
		p.peer.notify(api.CmdActivateRead)
	}
	return true
}

// State implements api.Pipe.
func (p *Pipe) State() api.PipeState {
	switch p.state.Load() {
	case endTerminated:
		return api.PipeTerminated
	case endTerminating:
		return api.PipeTerminating
	}
	if p.in.active() {
		return api.PipeActive
	}
	return api.PipeInactive
}

// Terminate implements api.Pipe. The first end to terminate notifies the
// peer's owner; a later call from the peer acknowledges and posts nothing.
func (p *Pipe) Terminate() {
	if !p.pair.terminated.CompareAndSwap(false, true) {
		p.state.Store(endTerminated)
		return
	}
	p.in.close()
	p.out.close()
	p.state.Store(endTerminated)
	p.peer.state.CompareAndSwap(endRunning, endTerminating)
	p.dropStaged()
	p.peer.notify(api.CmdPipeTerm)
}

// Pending returns the number of inbound frames queued for this end.
func (p *Pipe) Pending() int { return p.in.length() }

func (p *Pipe) notify(kind api.CommandKind) {
	if p.sink != nil {
		p.sink.Post(api.Command{Kind: kind, Pipe: p})
	}
}

func (p *Pipe) dropStaged() {
	for i := range p.staged {
		p.staged[i].Close()
	}
	p.staged = nil
}

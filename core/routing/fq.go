// File: core/routing/fq.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package routing

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
)

// FairQueue selects inbound frames across pipes in round robin. Frames of one
// message are always taken from the same pipe.
type FairQueue struct {
	reg    registry
	cursor int
	// more is set while the pipe at cursor, or draining, is delivering a
	// multi-frame message.
	more bool
	// draining is a pipe removed in the middle of a message. Its remaining
	// frames were flushed together with the first one and are read before
	// the rotation resumes.
	draining api.Pipe
}

// NewFairQueue creates an empty fair queue.
func NewFairQueue() *FairQueue {
	return &FairQueue{reg: newRegistry()}
}

// Attach appends p to the rotation. The pipe starts active.
func (fq *FairQueue) Attach(p api.Pipe) error {
	return fq.reg.add(p, true)
}

// Activated marks p eligible again after it reported data. Unknown pipes are
// ignored.
func (fq *FairQueue) Activated(p api.Pipe) {
	if pos, ok := fq.reg.indexOf(p); ok {
		fq.reg.at(pos).active = true
	}
}

// Terminated removes p and reports whether the queue is now empty. When p
// was delivering a message, the rest of that message is still read from p.
func (fq *FairQueue) Terminated(p api.Pipe) bool {
	pos, ok := fq.reg.remove(p)
	if ok {
		if fq.more && fq.draining == nil && pos == fq.cursor {
			fq.draining = p
		}
		fq.cursor = adjust(pos, fq.cursor, fq.reg.len())
	}
	return fq.reg.len() == 0 && fq.draining == nil
}

// Recv moves the next frame into m. It returns api.ErrAgain, leaving the
// cursor untouched, when no pipe has data. Mid-message it reads only the
// source pipe; if that pipe has nothing left the message ends short and
// Recv returns api.ErrAgain instead of a frame of another pipe.
func (fq *FairQueue) Recv(m *msg.Msg) error {
	if fq.more {
		return fq.continuation(m)
	}

	n := fq.reg.len()
	for i := 0; i < n; i++ {
		pos := (fq.cursor + i) % n
		e := fq.reg.at(pos)
		if !e.active {
			continue
		}
		if e.pipe.Read(m) {
			fq.finish(pos, m.More())
			return nil
		}
		e.active = false
	}
	return api.ErrAgain
}

func (fq *FairQueue) continuation(m *msg.Msg) error {
	if src := fq.draining; src != nil {
		if !src.Read(m) {
			fq.more, fq.draining = false, nil
			return api.ErrAgain
		}
		fq.more = m.More()
		if !fq.more {
			fq.draining = nil
		}
		return nil
	}
	e := fq.reg.at(fq.cursor)
	if e.pipe.Read(m) {
		fq.finish(fq.cursor, m.More())
		return nil
	}
	// Pipes publish whole messages, so this happens only when the rest of
	// the message was lost with its pipe.
	e.active = false
	fq.more = false
	return api.ErrAgain
}

func (fq *FairQueue) finish(pos int, more bool) {
	fq.more = more
	if more {
		fq.cursor = pos
		return
	}
	fq.cursor = (pos + 1) % fq.reg.len()
}

// HasIn reports whether Recv would deliver a frame. It never consumes.
// An entry marked inactive is skipped even if its pipe has data again: only
// Activated, driven by the pipe's activation command, restores it.
func (fq *FairQueue) HasIn() bool {
	if fq.more {
		if fq.draining != nil {
			return fq.draining.CheckRead()
		}
		return fq.reg.at(fq.cursor).pipe.CheckRead()
	}
	for i := 0; i < fq.reg.len(); i++ {
		e := fq.reg.at(i)
		if !e.active {
			continue
		}
		if e.pipe.CheckRead() {
			return true
		}
		e.active = false
	}
	return false
}

// Len returns the number of attached pipes.
func (fq *FairQueue) Len() int { return fq.reg.len() }

// Pipes returns attached pipes in rotation order.
func (fq *FairQueue) Pipes() []api.Pipe { return fq.reg.pipes() }

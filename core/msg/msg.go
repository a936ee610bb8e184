// File: core/msg/msg.go
// Package msg defines the frame type moved through pipes and sockets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Msg is a single frame. Multi-frame messages are sequences of Msg values
// where every frame except the last carries the More flag.

package msg

// Flags is the per-frame flag set.
type Flags uint8

const (
	// More marks a frame that is followed by another frame of the same message.
	More Flags = 1 << iota
	// Command marks transport-level control frames (greetings). Such frames
	// never reach a pipe.
	Command
)

// Msg is one frame. The zero value is an empty final frame.
type Msg struct {
	data    []byte
	flags   Flags
	release func([]byte)
}

// New wraps b without copying. The caller must not modify b afterwards.
func New(b []byte) Msg {
	return Msg{data: b}
}

// NewString is a convenience constructor used mostly by tests and examples.
func NewString(s string) Msg {
	return Msg{data: []byte(s)}
}

// NewPooled wraps b and arranges for release(b) to be called once on Close.
func NewPooled(b []byte, release func([]byte)) Msg {
	return Msg{data: b, release: release}
}

// Bytes returns the frame payload.
func (m *Msg) Bytes() []byte { return m.data }

// Size returns payload length in bytes.
func (m *Msg) Size() int { return len(m.data) }

// Flags returns the raw flag set.
func (m *Msg) Flags() Flags { return m.flags }

// SetFlags replaces the flag set.
func (m *Msg) SetFlags(f Flags) { m.flags = f }

// More reports whether more frames of the same message follow.
func (m *Msg) More() bool { return m.flags&More != 0 }

// SetMore sets or clears the More flag.
func (m *Msg) SetMore(more bool) {
	if more {
		m.flags |= More
	} else {
		m.flags &^= More
	}
}

// IsCommand reports whether this is a transport control frame.
func (m *Msg) IsCommand() bool { return m.flags&Command != 0 }

// Move transfers the content of m into dst and leaves m empty. Whatever dst
// held before is closed.
func (m *Msg) Move(dst *Msg) {
	if dst == m {
		return
	}
	dst.Close()
	*dst = *m
	*m = Msg{}
}

// Copy returns an independent deep copy. The copy is never pooled.
func (m *Msg) Copy() Msg {
	b := make([]byte, len(m.data))
	copy(b, m.data)
	return Msg{data: b, flags: m.flags}
}

// Close releases the payload back to its pool, if any, and empties m.
func (m *Msg) Close() {
	if m.release != nil {
		m.release(m.data)
	}
	*m = Msg{}
}

// File: api/pipe.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pipe and notification contracts shared by the routing core and transports.

package api

import (
	"github.com/google/uuid"

	"github.com/momentics/hioload-mq/core/msg"
)

// Pipe is one end of a bidirectional, non-blocking, single-producer/
// single-consumer channel to one peer. The routing core holds Pipes as
// non-owning handles between attach and termination.
type Pipe interface {
	// ID is stable for the lifetime of the pipe.
	ID() uuid.UUID

	// Read moves the next inbound frame into m. It returns false when no
	// complete message is available.
	Read(m *msg.Msg) bool

	// Write moves m into the outbound direction. It returns false, leaving m
	// untouched, when the pipe is at its high watermark or terminated.
	Write(m *msg.Msg) bool

	// CheckRead reports whether Read would succeed.
	CheckRead() bool

	// CheckWrite reports whether a new message may be written.
	CheckWrite() bool

	// State returns the activation state as seen from this end.
	State() PipeState

	// Terminate detaches both ends. The peer's owner is notified.
	Terminate()
}

// CommandKind enumerates notifications delivered to a pipe owner.
type CommandKind int

const (
	// CmdAttach hands a freshly created pipe end to its owner.
	CmdAttach CommandKind = iota
	// CmdActivateRead reports that a previously empty pipe has data.
	CmdActivateRead
	// CmdActivateWrite reports that a pipe dropped below its low watermark.
	CmdActivateWrite
	// CmdPipeTerm reports that the peer terminated the pipe.
	CmdPipeTerm
)

func (k CommandKind) String() string {
	switch k {
	case CmdAttach:
		return "attach"
	case CmdActivateRead:
		return "activate_read"
	case CmdActivateWrite:
		return "activate_write"
	case CmdPipeTerm:
		return "pipe_term"
	default:
		return "unknown"
	}
}

// Command is a lifecycle or readiness notification for one pipe end.
type Command struct {
	Kind CommandKind
	Pipe Pipe
}

// Sink receives commands for the pipes it owns. Post is called from foreign
// goroutines and must be safe for concurrent use; commands must be applied in
// arrival order.
type Sink interface {
	Post(cmd Command)
}

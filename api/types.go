// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

// PipeState is the activation state of a pipe end.
type PipeState int

const (
	PipeActive PipeState = iota
	PipeInactive
	PipeTerminating
	PipeTerminated
)

func (s PipeState) String() string {
	switch s {
	case PipeActive:
		return "active"
	case PipeInactive:
		return "inactive"
	case PipeTerminating:
		return "terminating"
	case PipeTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SocketType is the closed set of socket patterns.
type SocketType int

const (
	// Dealer is the bidirectional request/reply-style pattern: fair-queued
	// receive, load-balanced send over the same pipes.
	Dealer SocketType = iota + 1
	Push
	Pull
	Req
	Rep
	Pub
	Sub
)

func (t SocketType) String() string {
	switch t {
	case Dealer:
		return "DEALER"
	case Push:
		return "PUSH"
	case Pull:
		return "PULL"
	case Req:
		return "REQ"
	case Rep:
		return "REP"
	case Pub:
		return "PUB"
	case Sub:
		return "SUB"
	default:
		return "UNKNOWN"
	}
}

// ParseSocketType maps a pattern name onto its SocketType.
func ParseSocketType(s string) (SocketType, error) {
	for t := Dealer; t <= Sub; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, NewError(ErrCodeInvalidArgument, "unknown socket type").WithContext("type", s)
}

// SocketStats is a point-in-time view of socket counters.
type SocketStats struct {
	Pipes          int
	MsgsSent       uint64
	MsgsReceived   uint64
	SendWouldBlock uint64
	RecvWouldBlock uint64
}

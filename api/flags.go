// File: api/flags.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Send/receive flags and socket option identifiers.

package api

// Flags modify a single send or receive call.
type Flags int

const (
	// SndMore marks the frame as followed by more frames of the same message.
	SndMore Flags = 1 << iota
	// DontWait turns a would-block condition into an immediate ErrAgain.
	DontWait
)

// Option identifies a socket option.
type Option int

const (
	// OptRcvMore (bool, read-only) reports whether the last received frame
	// has the more bit set.
	OptRcvMore Option = iota + 1
	OptSndHWM
	OptRcvHWM
	OptSndTimeout
	OptRcvTimeout
	OptIdentity
	OptIPv4Only
	OptReconnectIvl
	OptReconnectIvlMax
	OptMaxMsgSize
	OptType
)

func (o Option) String() string {
	switch o {
	case OptRcvMore:
		return "rcvmore"
	case OptSndHWM:
		return "sndhwm"
	case OptRcvHWM:
		return "rcvhwm"
	case OptSndTimeout:
		return "sndtimeo"
	case OptRcvTimeout:
		return "rcvtimeo"
	case OptIdentity:
		return "identity"
	case OptIPv4Only:
		return "ipv4only"
	case OptReconnectIvl:
		return "reconnect_ivl"
	case OptReconnectIvlMax:
		return "reconnect_ivl_max"
	case OptMaxMsgSize:
		return "maxmsgsize"
	case OptType:
		return "type"
	default:
		return "unknown"
	}
}

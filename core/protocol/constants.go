// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Wire protocol constants

package protocol

const (
	// Flag bits of the flags octet.
	FlagMore    = 0x01
	FlagCommand = 0x02

	// Lengths below LongLengthMarker fit in a single octet. Otherwise the
	// marker is followed by an 8-octet big-endian length.
	LongLengthMarker = 0xFF

	// MaxFrameHeaderLen is marker + 8 length octets + flags.
	MaxFrameHeaderLen = 10

	// DefaultMaxFrameSize bounds decoded frame bodies when no explicit limit
	// is configured.
	DefaultMaxFrameSize = 16 << 20

	// Greeting identification.
	Signature       = "HMQ"
	ProtocolVersion = 1
)

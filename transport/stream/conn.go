// File: transport/stream/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"net"
	"time"

	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/protocol"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/transport/engine"
)

// Conn frames a byte stream. Inbound payloads are taken from a BytePool.
type Conn struct {
	nc  net.Conn
	enc *protocol.Encoder
	dec *protocol.Decoder
}

var (
	_ engine.FrameConn = (*Conn)(nil)
	_ engine.Deadliner = (*Conn)(nil)
)

// NewConn wraps nc. maxFrame <= 0 selects protocol.DefaultMaxFrameSize.
func NewConn(nc net.Conn, maxFrame int64, p *pool.BytePool) *Conn {
	return &Conn{
		nc:  nc,
		enc: protocol.NewEncoder(nc),
		dec: protocol.NewDecoder(nc, maxFrame, p),
	}
}

// ReadFrame implements engine.FrameConn.
func (c *Conn) ReadFrame(m *msg.Msg) error { return c.dec.ReadMsg(m) }

// WriteFrame implements engine.FrameConn.
func (c *Conn) WriteFrame(m *msg.Msg) error { return c.enc.WriteMsg(m) }

// Flush implements engine.FrameConn.
func (c *Conn) Flush() error { return c.enc.Flush() }

// SetDeadline implements engine.Deadliner.
func (c *Conn) SetDeadline(t time.Time) error { return c.nc.SetDeadline(t) }

// RemoteAddr of the underlying connection.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Close the connection.
func (c *Conn) Close() error { return c.nc.Close() }

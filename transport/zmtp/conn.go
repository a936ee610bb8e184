// File: transport/zmtp/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package zmtp

import (
	"net"
	"sync"

	"github.com/go-zeromq/zmq4"

	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/transport/engine"
)

// Conn presents a zmq4 socket as a frame connection. zmq4 moves whole
// messages, so inbound messages are split into frames and outbound frames
// are staged until the final one.
type Conn struct {
	sck     zmq4.Socket
	canRecv bool

	in  [][]byte
	out [][]byte

	closed chan struct{}
	once   sync.Once
}

var _ engine.FrameConn = (*Conn)(nil)

// NewConn wraps sck. Send-only socket types never produce inbound frames.
func NewConn(sck zmq4.Socket, canRecv bool) *Conn {
	return &Conn{sck: sck, canRecv: canRecv, closed: make(chan struct{})}
}

// ReadFrame implements engine.FrameConn.
func (c *Conn) ReadFrame(m *msg.Msg) error {
	if !c.canRecv {
		<-c.closed
		return net.ErrClosed
	}
	for len(c.in) == 0 {
		zm, err := c.sck.Recv()
		if err != nil {
			return err
		}
		c.in = zm.Frames
	}
	f := c.in[0]
	c.in = c.in[1:]
	*m = msg.New(f)
	m.SetMore(len(c.in) > 0)
	return nil
}

// WriteFrame implements engine.FrameConn.
func (c *Conn) WriteFrame(m *msg.Msg) error {
	c.out = append(c.out, append([]byte(nil), m.Bytes()...))
	if m.More() {
		return nil
	}
	frames := c.out
	c.out = nil
	return c.sck.Send(zmq4.NewMsgFrom(frames...))
}

// Flush implements engine.FrameConn.
func (c *Conn) Flush() error { return nil }

// Close closes the zmq4 socket.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.sck.Close()
	})
	return err
}

// File: transport/ws/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ws

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/protocol"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/transport/engine"
)

// Conn carries one frame per binary WebSocket message. The first byte of
// each message holds the frame flags.
type Conn struct {
	c    *websocket.Conn
	pool *pool.BytePool
}

var (
	_ engine.FrameConn = (*Conn)(nil)
	_ engine.Deadliner = (*Conn)(nil)
)

// NewConn wraps c. maxFrame <= 0 selects protocol.DefaultMaxFrameSize.
func NewConn(c *websocket.Conn, maxFrame int64, p *pool.BytePool) *Conn {
	if maxFrame <= 0 {
		maxFrame = protocol.DefaultMaxFrameSize
	}
	if p == nil {
		p = pool.Default()
	}
	c.SetReadLimit(maxFrame + 1)
	return &Conn{c: c, pool: p}
}

// ReadFrame implements engine.FrameConn.
func (c *Conn) ReadFrame(m *msg.Msg) error {
	mt, data, err := c.c.ReadMessage()
	if err != nil {
		return err
	}
	if mt != websocket.BinaryMessage || len(data) == 0 {
		return fmt.Errorf("%w: expected non-empty binary message", api.ErrProtocol)
	}
	flags := data[0]
	if flags&^(protocol.FlagMore|protocol.FlagCommand) != 0 {
		return fmt.Errorf("%w: reserved flag bits 0x%02x", api.ErrProtocol, flags)
	}
	f := c.pool.Msg(len(data) - 1)
	copy(f.Bytes(), data[1:])
	f.SetFlags(msg.Flags(flags))
	f.Move(m)
	return nil
}

// WriteFrame implements engine.FrameConn.
func (c *Conn) WriteFrame(m *msg.Msg) error {
	w, err := c.c.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(m.Flags())}); err != nil {
		w.Close()
		return err
	}
	if _, err := w.Write(m.Bytes()); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Flush implements engine.FrameConn. Every message is flushed on write.
func (c *Conn) Flush() error { return nil }

// SetDeadline implements engine.Deadliner.
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.c.SetWriteDeadline(t)
}

// Close sends a close frame when possible and closes the connection.
func (c *Conn) Close() error {
	_ = c.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.c.Close()
}

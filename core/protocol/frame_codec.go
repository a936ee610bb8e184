// File: core/protocol/frame_codec.go
// Package protocol implements the frame codec with frame size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A frame is: length, flags octet, body. The length counts the flags octet
// plus the body.

package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/pool"
)

// AppendFrame appends the encoding of one frame to dst.
func AppendFrame(dst []byte, flags byte, body []byte) []byte {
	n := uint64(len(body)) + 1
	if n < LongLengthMarker {
		dst = append(dst, byte(n))
	} else {
		dst = append(dst, LongLengthMarker)
		dst = binary.BigEndian.AppendUint64(dst, n)
	}
	dst = append(dst, flags)
	return append(dst, body...)
}

// EncodeMsg appends m as a frame to dst.
func EncodeMsg(dst []byte, m *msg.Msg) []byte {
	return AppendFrame(dst, byte(m.Flags()), m.Bytes())
}

// Encoder writes frames to a buffered stream.
type Encoder struct {
	w   *bufio.Writer
	hdr [MaxFrameHeaderLen]byte
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// WriteFrame buffers one frame. Call Flush to push buffered frames out.
func (e *Encoder) WriteFrame(flags byte, body []byte) error {
	hdr := e.hdr[:0]
	n := uint64(len(body)) + 1
	if n < LongLengthMarker {
		hdr = append(hdr, byte(n))
	} else {
		hdr = append(hdr, LongLengthMarker)
		hdr = binary.BigEndian.AppendUint64(hdr, n)
	}
	hdr = append(hdr, flags)
	if _, err := e.w.Write(hdr); err != nil {
		return err
	}
	_, err := e.w.Write(body)
	return err
}

// WriteMsg buffers m as one frame.
func (e *Encoder) WriteMsg(m *msg.Msg) error {
	return e.WriteFrame(byte(m.Flags()), m.Bytes())
}

// Flush writes buffered frames to the underlying stream.
func (e *Encoder) Flush() error { return e.w.Flush() }

// Buffered returns the number of bytes waiting for Flush.
func (e *Encoder) Buffered() int { return e.w.Buffered() }

// Decoder reads frames from a stream into pooled messages.
type Decoder struct {
	r    *bufio.Reader
	max  int64
	pool *pool.BytePool
}

// NewDecoder wraps r. maxSize <= 0 selects DefaultMaxFrameSize; a nil pool
// selects pool.Default().
func NewDecoder(r io.Reader, maxSize int64, p *pool.BytePool) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	if p == nil {
		p = pool.Default()
	}
	return &Decoder{r: bufio.NewReader(r), max: maxSize, pool: p}
}

// ReadMsg decodes the next frame into m. Oversized or malformed frames yield
// an error wrapping api.ErrProtocol.
func (d *Decoder) ReadMsg(m *msg.Msg) error {
	lead, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	n := uint64(lead)
	if lead == LongLengthMarker {
		var ext [8]byte
		if _, err := io.ReadFull(d.r, ext[:]); err != nil {
			return unexpected(err)
		}
		n = binary.BigEndian.Uint64(ext[:])
	}
	if n == 0 {
		return fmt.Errorf("%w: zero frame length", api.ErrProtocol)
	}
	size := n - 1
	if size > uint64(d.max) {
		return fmt.Errorf("%w: frame of %d bytes exceeds limit %d", api.ErrProtocol, size, d.max)
	}

	flags, err := d.r.ReadByte()
	if err != nil {
		return unexpected(err)
	}
	if flags&^(FlagMore|FlagCommand) != 0 {
		return fmt.Errorf("%w: reserved flag bits 0x%02x", api.ErrProtocol, flags)
	}

	f := d.pool.Msg(int(size))
	if _, err := io.ReadFull(d.r, f.Bytes()); err != nil {
		f.Close()
		return unexpected(err)
	}
	f.SetFlags(msg.Flags(flags))
	f.Move(m)
	return nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

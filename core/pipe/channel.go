// File: core/pipe/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One direction of a pipe pair: flushed frames plus watermark bookkeeping.

package pipe

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-mq/core/msg"
)

// maxWMDelta caps the distance between high and low watermark.
const maxWMDelta = 1024

// lowWatermark derives the reactivation threshold for a given hwm.
func lowWatermark(hwm int) int {
	if hwm <= 0 {
		return 0
	}
	if hwm > 2*maxWMDelta {
		return hwm - maxWMDelta
	}
	return (hwm + 1) / 2
}

// channel carries frames from a single writer end to a single reader end.
// All fields are guarded by mu.
type channel struct {
	mu     sync.Mutex
	frames *queue.Queue

	hwm int
	lwm int

	// Complete messages flushed and consumed.
	written uint64
	read    uint64

	// readerActive is cleared when the reader finds the channel empty and set
	// again by the flush that posts the activation.
	readerActive bool
	// writerBlocked is set when the writer hits hwm.
	writerBlocked bool
	closed        bool
}

func newChannel(hwm int) *channel {
	if hwm < 0 {
		hwm = 0
	}
	return &channel{
		frames:       queue.New(),
		hwm:          hwm,
		lwm:          lowWatermark(hwm),
		readerActive: true,
	}
}

func (c *channel) inflight() int {
	return int(c.written - c.read)
}

// full reports hwm saturation and marks the writer blocked when so.
func (c *channel) full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hwm > 0 && c.inflight() >= c.hwm {
		c.writerBlocked = true
		return true
	}
	return false
}

// flush appends one complete message. It returns false when the channel is
// closed, and wake=true when the reader must be activated.
func (c *channel) flush(frames []msg.Msg) (ok, wake bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, false
	}
	for i := range frames {
		c.frames.Add(frames[i])
	}
	c.written++
	if !c.readerActive {
		c.readerActive = true
		wake = true
	}
	return true, wake
}

// pop removes the next frame. wake=true when the writer must be activated.
func (c *channel) pop() (f msg.Msg, ok, wake bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frames.Length() == 0 {
		c.readerActive = false
		return msg.Msg{}, false, false
	}
	f = c.frames.Remove().(msg.Msg)
	if !f.More() {
		c.read++
		if c.writerBlocked && c.hwm-c.inflight() >= c.lwm {
			c.writerBlocked = false
			wake = true
		}
	}
	return f, true, wake
}

func (c *channel) readable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frames.Length() == 0 {
		c.readerActive = false
		return false
	}
	return true
}

func (c *channel) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readerActive && c.frames.Length() > 0
}

func (c *channel) length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames.Length()
}

// close stops accepting flushes. Queued frames stay readable.
func (c *channel) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

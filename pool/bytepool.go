// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"

	"github.com/momentics/hioload-mq/core/msg"
)

const (
	minClassShift = 6  // 64 B
	maxClassShift = 16 // 64 KiB

	// DefaultSlabCapacity is the number of idle buffers kept per class.
	DefaultSlabCapacity = 1024
)

// Stats summarizes pool activity across all classes.
type Stats struct {
	Allocated uint64
	Reused    uint64
	Returned  uint64
	Dropped   uint64
	Oversized uint64
}

// BytePool hands out byte slices from power-of-two size classes. Requests
// above the largest class are served by plain allocation.
type BytePool struct {
	classes   []*slab
	oversized uint64
	mu        sync.Mutex
}

// NewBytePool creates a pool keeping up to perClass idle buffers per class.
func NewBytePool(perClass int) *BytePool {
	if perClass <= 0 {
		perClass = DefaultSlabCapacity
	}
	p := &BytePool{}
	for shift := minClassShift; shift <= maxClassShift; shift++ {
		p.classes = append(p.classes, newSlab(1<<shift, perClass))
	}
	return p
}

// Get returns a slice of length n.
func (p *BytePool) Get(n int) []byte {
	idx := classFor(n, minClassShift)
	if idx >= len(p.classes) {
		p.mu.Lock()
		p.oversized++
		p.mu.Unlock()
		return make([]byte, n)
	}
	return p.classes[idx].get()[:n]
}

// Put returns buf to its class. Slices not obtained from Get are ignored.
func (p *BytePool) Put(buf []byte) {
	c := cap(buf)
	idx := classFor(c, minClassShift)
	if idx >= len(p.classes) || p.classes[idx].size != c {
		return
	}
	p.classes[idx].put(buf)
}

// Msg returns a pooled message of n bytes whose payload goes back to p on
// Close.
func (p *BytePool) Msg(n int) msg.Msg {
	return msg.NewPooled(p.Get(n), p.Put)
}

// Stats returns cumulative counters.
func (p *BytePool) Stats() Stats {
	var st Stats
	for _, s := range p.classes {
		st.Allocated += s.allocated.Load()
		st.Reused += s.reused.Load()
		st.Returned += s.returned.Load()
		st.Dropped += s.dropped.Load()
	}
	p.mu.Lock()
	st.Oversized = p.oversized
	p.mu.Unlock()
	return st
}

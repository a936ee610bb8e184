// File: pool/slab_pool.go
// Package pool implements lock-free slab allocation with size class support.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"math/bits"
	"sync/atomic"

	"github.com/momentics/hioload-mq/core/concurrency"
)

// slab: fixed-size buffers of one size class.
type slab struct {
	size int
	free *concurrency.RingBuffer[[]byte]

	allocated atomic.Uint64
	reused    atomic.Uint64
	returned  atomic.Uint64
	dropped   atomic.Uint64
}

func newSlab(size, capacity int) *slab {
	return &slab{size: size, free: concurrency.NewRingBuffer[[]byte](capacity)}
}

func (s *slab) get() []byte {
	if buf, ok := s.free.Dequeue(); ok {
		s.reused.Add(1)
		return buf
	}
	s.allocated.Add(1)
	return make([]byte, s.size)
}

func (s *slab) put(buf []byte) {
	if s.free.Enqueue(buf[:s.size]) {
		s.returned.Add(1)
		return
	}
	// Slab full, leave it to the GC.
	s.dropped.Add(1)
}

// classFor returns the index of the smallest class holding n bytes, given the
// smallest class is 1<<minShift.
func classFor(n int, minShift uint) int {
	if n <= 1<<minShift {
		return 0
	}
	return bits.Len(uint(n-1)) - int(minShift)
}

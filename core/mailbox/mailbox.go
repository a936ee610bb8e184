// File: core/mailbox/mailbox.go
// Package mailbox delivers pipe commands to the goroutine owning a socket.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Producers are transport engines and peer pipe ends on arbitrary goroutines.
// The single consumer drains the mailbox at the start of every socket call.

package mailbox

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/concurrency"
)

// DefaultCapacity is the ring size used by New when size <= 0.
const DefaultCapacity = 1024

// Mailbox is a multi-producer, single-consumer FIFO of api.Command with a
// level-triggered wakeup signal.
type Mailbox struct {
	ring   *concurrency.RingBuffer[api.Command]
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

var _ api.Sink = (*Mailbox)(nil)

// New creates a mailbox backed by a ring of at least size slots.
func New(size int) *Mailbox {
	if size <= 0 {
		size = DefaultCapacity
	}
	return &Mailbox{
		ring:   concurrency.NewRingBuffer[api.Command](size),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post enqueues cmd and wakes the consumer. A full ring makes the producer
// yield until the consumer catches up; commands are never dropped. Posting to
// a closed mailbox is a no-op.
func (mb *Mailbox) Post(cmd api.Command) {
	for !mb.ring.Enqueue(cmd) {
		select {
		case <-mb.done:
			return
		default:
		}
		runtime.Gosched()
	}
	mb.Signal()
}

// Signal wakes a pending Wait without posting a command.
func (mb *Mailbox) Signal() {
	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

// TryRecv pops the oldest command, if any.
func (mb *Mailbox) TryRecv() (api.Command, bool) {
	return mb.ring.Dequeue()
}

// Drain applies fn to every queued command in arrival order and returns how
// many were processed.
func (mb *Mailbox) Drain(fn func(api.Command)) int {
	n := 0
	for {
		cmd, ok := mb.ring.Dequeue()
		if !ok {
			return n
		}
		fn(cmd)
		n++
	}
}

// Len returns the number of queued commands.
func (mb *Mailbox) Len() int { return mb.ring.Len() }

// Wait blocks until the mailbox is signalled. A negative timeout waits
// forever, zero only polls. It returns api.ErrAgain on timeout, api.ErrClosed
// after Close, or the context error.
func (mb *Mailbox) Wait(ctx context.Context, timeout time.Duration) error {
	select {
	case <-mb.signal:
		return nil
	case <-mb.done:
		return api.ErrClosed
	default:
	}
	if timeout == 0 {
		return api.ErrAgain
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-mb.signal:
		return nil
	case <-mb.done:
		return api.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return api.ErrAgain
	}
}

// Close wakes all waiters permanently. Queued commands remain drainable.
func (mb *Mailbox) Close() {
	mb.once.Do(func() { close(mb.done) })
}

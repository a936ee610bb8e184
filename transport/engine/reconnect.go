// File: transport/engine/reconnect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"context"
	"log/slog"
	"time"
)

// DialFunc establishes one connection and starts its engine.
type DialFunc func(ctx context.Context) (*Engine, error)

// Reconnector keeps one outgoing connection alive. After a failed dial or a
// disconnect it waits Interval, doubling up to MaxInterval, and dials again.
// A zero Interval disables reconnection.
type Reconnector struct {
	dial        DialFunc
	interval    time.Duration
	maxInterval time.Duration
	log         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Reconnect starts dialing in the background.
func Reconnect(dial DialFunc, interval, maxInterval time.Duration, log *slog.Logger) *Reconnector {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reconnector{
		dial:        dial,
		interval:    interval,
		maxInterval: maxInterval,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reconnector) run() {
	defer close(r.done)
	ivl := r.interval
	for {
		e, err := r.dial(r.ctx)
		if err == nil {
			r.log.Debug("connected")
			ivl = r.interval
			select {
			case <-e.Done():
				r.log.Debug("disconnected", "err", e.Err())
			case <-r.ctx.Done():
				e.Close()
				return
			}
		} else if r.ctx.Err() == nil {
			r.log.Debug("connect failed", "err", err, "retry_in", ivl)
		}

		if ivl <= 0 {
			return
		}
		timer := time.NewTimer(ivl)
		select {
		case <-timer.C:
		case <-r.ctx.Done():
			timer.Stop()
			return
		}
		ivl = NextInterval(ivl, r.interval, r.maxInterval)
	}
}

// NextInterval doubles cur when a ceiling above base is configured.
func NextInterval(cur, base, ceil time.Duration) time.Duration {
	if ceil <= base {
		return base
	}
	cur *= 2
	if cur > ceil {
		cur = ceil
	}
	return cur
}

// Done is closed once the reconnector gave up or was closed.
func (r *Reconnector) Done() <-chan struct{} { return r.done }

// Close stops reconnecting and tears down the current connection.
func (r *Reconnector) Close() error {
	r.cancel()
	<-r.done
	return nil
}

// File: transport/stream/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/transport/address"
	"github.com/momentics/hioload-mq/transport/engine"
)

// acceptBackoff pauses the accept loop after a transient error.
const acceptBackoff = 10 * time.Millisecond

// listener accepts connections for one bound endpoint. Closing it stops
// accepting and tears down every engine it started.
type listener struct {
	t    *Transport
	ln   net.Listener
	host api.Host
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	engines map[*engine.Engine]struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newListener(t *Transport, ln net.Listener, host api.Host) *listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &listener{
		t:       t,
		ln:      ln,
		host:    host,
		log:     host.Logger().With("transport", t.scheme),
		ctx:     ctx,
		cancel:  cancel,
		engines: make(map[*engine.Engine]struct{}),
	}
}

// Endpoint reports the bound address, with the actual port for wildcard
// binds.
func (l *listener) Endpoint() string { return l.ln.Addr().String() }

func (l *listener) serve() {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || l.ctx.Err() != nil {
				return
			}
			l.log.Warn("accept error", "err", err)
			time.Sleep(acceptBackoff)
			continue
		}
		l.wg.Add(1)
		go l.handle(nc)
	}
}

func (l *listener) handle(nc net.Conn) {
	defer l.wg.Done()
	if l.t.scheme == SchemeTCP {
		if err := address.TuneTCP(nc); err != nil {
			l.log.Debug("tune failed", "remote", nc.RemoteAddr(), "err", err)
		}
	}
	remote := nc.RemoteAddr().String()
	e, err := l.t.start(l.ctx, nc, l.host, l.Endpoint(), l.forget)
	if err != nil {
		l.log.Debug("handshake failed", "remote", remote, "err", err)
		return
	}
	l.mu.Lock()
	l.engines[e] = struct{}{}
	l.mu.Unlock()
	l.log.Debug("accepted", "remote", remote)

	select {
	case <-e.Done():
		l.forget(e, nil)
	default:
	}
}

func (l *listener) forget(e *engine.Engine, err error) {
	l.mu.Lock()
	delete(l.engines, e)
	l.mu.Unlock()
	if err != nil {
		l.log.Debug("disconnected", "err", err)
	}
}

// Close implements io.Closer.
func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.ln.Close()
		l.wg.Wait()

		l.mu.Lock()
		engines := make([]*engine.Engine, 0, len(l.engines))
		for e := range l.engines {
			engines = append(engines, e)
		}
		l.mu.Unlock()
		for _, e := range engines {
			e.Close()
		}
		l.log.Info("listener closed", "endpoint", l.ln.Addr().String())
	})
	return err
}

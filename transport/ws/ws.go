// File: transport/ws/ws.go
// Package ws carries sockets over WebSocket connections.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoints look like ws://host:port/path. Binding serves the upgrade on
// path; connecting dials it and redials on failure like tcp does.

package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/transport/address"
	"github.com/momentics/hioload-mq/transport/engine"
	"github.com/momentics/hioload-mq/transport/stream"
)

// Scheme served by this transport.
const Scheme = "ws"

// Subprotocol negotiated during the upgrade.
const Subprotocol = "hmq.v1"

// Transport implements api.Transport for ws://.
type Transport struct {
	tcp              *stream.Transport
	pool             *pool.BytePool
	handshakeTimeout time.Duration
}

var _ api.Transport = (*Transport)(nil)

// New creates the transport. Decoded frames come from p, or pool.Default()
// when p is nil.
func New(p *pool.BytePool) *Transport {
	if p == nil {
		p = pool.Default()
	}
	return &Transport{
		tcp:              stream.NewTCP(stream.WithPool(p)),
		pool:             p,
		handshakeTimeout: engine.DefaultHandshakeTimeout,
	}
}

// Schemes implements api.Transport.
func (t *Transport) Schemes() []string { return []string{Scheme} }

// splitPath separates "host:port/path" into its parts. The path defaults
// to "/".
func splitPath(addr string) (hostport, path string) {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i], addr[i:]
	}
	return addr, "/"
}

// Bind implements api.Transport.
func (t *Transport) Bind(_ context.Context, addr string, host api.Host) (io.Closer, error) {
	hostport, path := splitPath(addr)
	ln, err := t.tcp.Listen(hostport, host.PipeConfig().IPv4Only)
	if err != nil {
		return nil, err
	}
	s := newServer(t, ln, path, host)
	s.log.Info("listening", "endpoint", s.Endpoint())
	go s.serve()
	return s, nil
}

// Connect implements api.Transport.
func (t *Transport) Connect(ctx context.Context, addr string, host api.Host) (io.Closer, error) {
	pc := host.PipeConfig()
	hostport, _ := splitPath(addr)
	if _, err := address.ResolveHostname(ctx, hostport, pc.IPv4Only); err != nil {
		return nil, err
	}
	url := Scheme + "://" + addr
	dialer := websocket.Dialer{
		HandshakeTimeout: t.handshakeTimeout,
		Subprotocols:     []string{Subprotocol},
	}
	dial := func(ctx context.Context) (*engine.Engine, error) {
		c, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return t.start(ctx, c, host, url, nil)
	}
	log := host.Logger().With("transport", Scheme, "endpoint", url)
	return engine.Reconnect(dial, pc.ReconnectIvl, pc.ReconnectIvlMax, log), nil
}

func (t *Transport) start(ctx context.Context, c *websocket.Conn, host api.Host, endpoint string, onClose func(*engine.Engine, error)) (*engine.Engine, error) {
	conn := NewConn(c, host.PipeConfig().MaxMsgSize, t.pool)
	return engine.Start(ctx, conn, host, engine.Config{
		HandshakeTimeout: t.handshakeTimeout,
		Endpoint:         endpoint,
		OnClose:          onClose,
	})
}

// server is one bound ws endpoint.
type server struct {
	t    *Transport
	ln   net.Listener
	path string
	host api.Host
	log  *slog.Logger
	srv  *http.Server

	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	engines map[*engine.Engine]struct{}
	closed  bool
	once    sync.Once
}

func newServer(t *Transport, ln net.Listener, path string, host api.Host) *server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &server{
		t:       t,
		ln:      ln,
		path:    path,
		host:    host,
		log:     host.Logger().With("transport", Scheme),
		ctx:     ctx,
		cancel:  cancel,
		engines: make(map[*engine.Engine]struct{}),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{Subprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: t.handshakeTimeout}
	return s
}

// Endpoint reports host:port/path with the actual port.
func (s *server) Endpoint() string {
	p := s.path
	if p == "/" {
		p = ""
	}
	return s.ln.Addr().String() + p
}

func (s *server) serve() {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("serve stopped", "err", err)
	}
}

func (s *server) handle(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	e, err := s.t.start(s.ctx, c, s.host, s.Endpoint(), s.forget)
	if err != nil {
		s.log.Debug("handshake failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		e.Close()
		return
	}
	s.engines[e] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("accepted", "remote", r.RemoteAddr)
}

func (s *server) forget(e *engine.Engine, _ error) {
	s.mu.Lock()
	delete(s.engines, e)
	s.mu.Unlock()
}

// Close implements io.Closer.
func (s *server) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.srv.Close()

		s.mu.Lock()
		s.closed = true
		engines := make([]*engine.Engine, 0, len(s.engines))
		for e := range s.engines {
			engines = append(engines, e)
		}
		s.mu.Unlock()
		for _, e := range engines {
			e.Close()
		}
		s.log.Info("listener closed", "endpoint", s.Endpoint())
	})
	return err
}

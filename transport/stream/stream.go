// File: transport/stream/stream.go
// Package stream carries sockets over TCP and Unix domain stream sockets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every accepted or dialed connection gets its own engine and pipe. Bound
// endpoints resolve through address.ResolveInterface and never hit DNS;
// connected endpoints resolve through address.ResolveHostname. Reconnecting
// is an engine.Reconnector; the socket only sees pipes come and go.

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/transport/address"
	"github.com/momentics/hioload-mq/transport/engine"
)

// Schemes served by this package.
const (
	SchemeTCP = "tcp"
	SchemeIPC = "ipc"
)

// Transport implements api.Transport for one scheme.
type Transport struct {
	scheme           string
	pool             *pool.BytePool
	resolver         *address.Resolver
	handshakeTimeout time.Duration
}

var _ api.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithPool sets the pool inbound frames are decoded into.
func WithPool(p *pool.BytePool) Option {
	return func(t *Transport) { t.pool = p }
}

// WithResolver replaces address.Default.
func WithResolver(r *address.Resolver) Option {
	return func(t *Transport) { t.resolver = r }
}

// WithHandshakeTimeout bounds the greeting exchange of each connection.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(t *Transport) { t.handshakeTimeout = d }
}

// NewTCP creates the tcp:// transport.
func NewTCP(opts ...Option) *Transport { return newTransport(SchemeTCP, opts) }

// NewIPC creates the ipc:// transport.
func NewIPC(opts ...Option) *Transport { return newTransport(SchemeIPC, opts) }

func newTransport(scheme string, opts []Option) *Transport {
	t := &Transport{
		scheme:           scheme,
		pool:             pool.Default(),
		resolver:         address.Default,
		handshakeTimeout: engine.DefaultHandshakeTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Schemes implements api.Transport.
func (t *Transport) Schemes() []string { return []string{t.scheme} }

// Bind implements api.Transport. For tcp a port of "*" picks an ephemeral
// port; the closer's Endpoint method reports the one chosen.
func (t *Transport) Bind(_ context.Context, addr string, host api.Host) (io.Closer, error) {
	ln, err := t.Listen(addr, host.PipeConfig().IPv4Only)
	if err != nil {
		return nil, err
	}
	l := newListener(t, ln, host)
	l.log.Info("listening", "endpoint", l.Endpoint())
	go l.serve()
	return l, nil
}

// Connect implements api.Transport. The address is validated immediately;
// the connection itself is established, and re-established, in the
// background.
func (t *Transport) Connect(ctx context.Context, addr string, host api.Host) (io.Closer, error) {
	if _, err := t.resolveRemote(ctx, addr, host.PipeConfig().IPv4Only); err != nil {
		return nil, err
	}
	pc := host.PipeConfig()
	log := host.Logger().With("transport", t.scheme, "endpoint", addr)
	dial := func(ctx context.Context) (*engine.Engine, error) {
		nc, err := t.dial(ctx, addr, pc.IPv4Only)
		if err != nil {
			return nil, err
		}
		return t.start(ctx, nc, host, addr, nil)
	}
	return engine.Reconnect(dial, pc.ReconnectIvl, pc.ReconnectIvlMax, log), nil
}

// Listen resolves addr as a local interface and opens a listener on it
// without accepting.
func (t *Transport) Listen(addr string, ipv4only bool) (net.Listener, error) {
	var (
		ln  net.Listener
		err error
	)
	switch t.scheme {
	case SchemeTCP:
		network, ta, rerr := t.ResolveBind(addr, ipv4only)
		if rerr != nil {
			return nil, rerr
		}
		ln, err = net.ListenTCP(network, ta)
	case SchemeIPC:
		sa, rerr := address.ResolveLocalPath(addr)
		if rerr != nil {
			return nil, rerr
		}
		ln, err = net.ListenUnix(sa.Network(), sa.UnixAddr())
	default:
		return nil, api.NewError(api.ErrCodeNotSupported, "unknown stream scheme").WithContext("scheme", t.scheme)
	}
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("%w: %v", api.ErrAddrInUse, err)
		}
		return nil, fmt.Errorf("listen %s://%s: %w", t.scheme, addr, err)
	}
	return ln, nil
}

// ResolveBind resolves a tcp bind address. A port of "*" yields port 0.
func (t *Transport) ResolveBind(addr string, ipv4only bool) (string, *net.TCPAddr, error) {
	resolveAs, ephemeral := ephemeralPort(addr)
	sa, err := t.resolver.ResolveInterface(resolveAs, ipv4only)
	if err != nil {
		return "", nil, err
	}
	ta := sa.TCPAddr()
	if ephemeral {
		ta.Port = 0
	}
	return sa.Network(), ta, nil
}

func (t *Transport) resolveRemote(ctx context.Context, addr string, ipv4only bool) (address.SockAddr, error) {
	if t.scheme == SchemeIPC {
		return address.ResolveLocalPath(addr)
	}
	return t.resolver.ResolveHostname(ctx, addr, ipv4only)
}

func (t *Transport) dial(ctx context.Context, addr string, ipv4only bool) (net.Conn, error) {
	sa, err := t.resolveRemote(ctx, addr, ipv4only)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	nc, err := d.DialContext(ctx, sa.Network(), sa.String())
	if err != nil || sa.Family() == address.FamilyLocal {
		return nc, err
	}
	if err := address.TuneTCP(nc); err != nil {
		nc.Close()
		return nil, err
	}
	return nc, nil
}

// start wraps nc and runs an engine for host on it.
func (t *Transport) start(ctx context.Context, nc net.Conn, host api.Host, endpoint string, onClose func(*engine.Engine, error)) (*engine.Engine, error) {
	conn := NewConn(nc, host.PipeConfig().MaxMsgSize, t.pool)
	return engine.Start(ctx, conn, host, engine.Config{
		HandshakeTimeout: t.handshakeTimeout,
		Endpoint:         endpoint,
		OnClose:          onClose,
	})
}

// ephemeralPort maps "host:*" onto a resolvable placeholder.
func ephemeralPort(addr string) (string, bool) {
	if host, ok := strings.CutSuffix(addr, ":*"); ok {
		return host + ":1", true
	}
	return addr, false
}

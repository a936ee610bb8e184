// File: transport/zmtp/zmtp.go
// Package zmtp bridges sockets to ZeroMQ peers through go-zeromq/zmq4.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoints look like zmq+tcp://host:port. Each bind or connect owns one
// zmq4 socket of the local socket's type and one pipe; zmq4 does the ZMTP
// handshake, peer fan-out and its own redialing underneath.

package zmtp

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-zeromq/zmq4"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/transport/address"
	"github.com/momentics/hioload-mq/transport/engine"
	"github.com/momentics/hioload-mq/transport/stream"
)

// Scheme served by this transport.
const Scheme = "zmq+tcp"

// Transport implements api.Transport for zmq+tcp://.
type Transport struct {
	tcp *stream.Transport
}

var _ api.Transport = (*Transport)(nil)

// New creates the transport.
func New() *Transport {
	return &Transport{tcp: stream.NewTCP()}
}

// Schemes implements api.Transport.
func (t *Transport) Schemes() []string { return []string{Scheme} }

// newSocket creates the zmq4 counterpart of a local socket type.
func newSocket(ctx context.Context, host api.Host) (zmq4.Socket, bool, error) {
	opts := []zmq4.Option{
		zmq4.WithID(zmq4.SocketIdentity(host.Identity())),
		zmq4.WithLogger(slog.NewLogLogger(host.Logger().Handler(), slog.LevelDebug)),
	}
	if ivl := host.PipeConfig().ReconnectIvl; ivl > 0 {
		opts = append(opts, zmq4.WithDialerRetry(ivl))
	}
	switch host.Type() {
	case api.Dealer:
		return zmq4.NewDealer(ctx, opts...), true, nil
	case api.Push:
		return zmq4.NewPush(ctx, opts...), false, nil
	case api.Pull:
		return zmq4.NewPull(ctx, opts...), true, nil
	}
	return nil, false, api.NewError(api.ErrCodeNotSupported, "no zmtp bridge for socket type").
		WithContext("type", host.Type().String())
}

// Bind implements api.Transport. A port of "*" picks an ephemeral port.
func (t *Transport) Bind(_ context.Context, addr string, host api.Host) (io.Closer, error) {
	_, ta, err := t.tcp.ResolveBind(addr, host.PipeConfig().IPv4Only)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	sck, canRecv, err := newSocket(ctx, host)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := sck.Listen("tcp://" + ta.String()); err != nil {
		cancel()
		sck.Close()
		return nil, err
	}
	ep := sck.Addr().String()
	e := engine.Attach(ctx, NewConn(sck, canRecv), host, engine.Config{Endpoint: Scheme + "://" + ep})
	host.Logger().Info("listening", "transport", Scheme, "endpoint", ep)
	return &binding{e: e, cancel: cancel, endpoint: ep}, nil
}

// Connect implements api.Transport. Dialing happens in the background.
func (t *Transport) Connect(ctx context.Context, addr string, host api.Host) (io.Closer, error) {
	pc := host.PipeConfig()
	if _, err := address.ResolveHostname(ctx, addr, pc.IPv4Only); err != nil {
		return nil, err
	}
	dial := func(ctx context.Context) (*engine.Engine, error) {
		sck, canRecv, err := newSocket(ctx, host)
		if err != nil {
			return nil, err
		}
		if err := sck.Dial("tcp://" + addr); err != nil {
			sck.Close()
			return nil, err
		}
		return engine.Attach(ctx, NewConn(sck, canRecv), host, engine.Config{Endpoint: Scheme + "://" + addr}), nil
	}
	lg := host.Logger().With("transport", Scheme, "endpoint", addr)
	return engine.Reconnect(dial, pc.ReconnectIvl, pc.ReconnectIvlMax, lg), nil
}

type binding struct {
	e        *engine.Engine
	cancel   context.CancelFunc
	endpoint string
}

// Endpoint reports the address the zmq4 socket listens on.
func (b *binding) Endpoint() string { return b.endpoint }

func (b *binding) Close() error {
	err := b.e.Close()
	b.cancel()
	return err
}

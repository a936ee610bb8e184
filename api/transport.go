// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Transport contract: how endpoints create pipes and hand them to sockets.
// Connection establishment, framing and reconnect policy live behind it.

package api

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// PipeConfig carries the per-socket settings a transport needs to build pipes
// and engines.
type PipeConfig struct {
	SndHWM          int
	RcvHWM          int
	IPv4Only        bool
	ReconnectIvl    time.Duration
	ReconnectIvlMax time.Duration
	MaxMsgSize      int64
}

// Host is the view of a socket exposed to transports. Every method is safe
// to call from any goroutine.
type Host interface {
	// Sink receives CmdAttach and readiness commands for the socket's pipes.
	Sink() Sink
	PipeConfig() PipeConfig
	Type() SocketType
	Identity() []byte
	Logger() *slog.Logger
}

// Transport binds and connects endpoints of one or more URL schemes.
// The returned io.Closer tears the endpoint down; pipes already attached are
// terminated by the transport on close.
type Transport interface {
	Schemes() []string
	Bind(ctx context.Context, addr string, host Host) (io.Closer, error)
	Connect(ctx context.Context, addr string, host Host) (io.Closer, error)
}

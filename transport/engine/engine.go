// File: transport/engine/engine.go
// Package engine bridges one pipe end to a framed network connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// An engine owns the far end of a pipe pair whose near end belongs to a
// socket. One goroutine moves frames from the pipe to the connection, the
// other from the connection to the pipe. Backpressure is expressed only
// through pipe activation commands posted to the engine.

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/pipe"
	"github.com/momentics/hioload-mq/core/protocol"
)

// DefaultHandshakeTimeout bounds the greeting exchange.
const DefaultHandshakeTimeout = 5 * time.Second

// FrameConn is a connection carrying whole frames.
type FrameConn interface {
	// ReadFrame blocks until the next frame arrives.
	ReadFrame(m *msg.Msg) error
	// WriteFrame may buffer; Flush pushes buffered frames out.
	WriteFrame(m *msg.Msg) error
	Flush() error
	Close() error
}

// Deadliner is implemented by connections that can bound the handshake.
type Deadliner interface {
	SetDeadline(t time.Time) error
}

// errTerminated ends the loops when the socket detached the pipe.
var errTerminated = errors.New("pipe terminated by socket")

// Config tunes one engine.
type Config struct {
	HandshakeTimeout time.Duration
	// OnClose runs once after both loops stopped and the pipe is gone.
	OnClose func(e *Engine, err error)
	// Endpoint is used for logging only.
	Endpoint string
}

// Engine is a running pipe/connection bridge.
type Engine struct {
	conn FrameConn
	host api.Host
	cfg  Config
	log  *slog.Logger
	peer protocol.Greeting

	pipe *pipe.Pipe

	readable chan struct{}
	writable chan struct{}
	term     chan struct{}
	termOnce sync.Once

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

var _ api.Sink = (*Engine)(nil)

// Handshake exchanges greetings over conn and checks the peer may talk to a
// socket of the local type.
func Handshake(ctx context.Context, conn FrameConn, local api.SocketType, identity []byte, timeout time.Duration) (protocol.Greeting, error) {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if dl, ok := conn.(Deadliner); ok {
		if err := dl.SetDeadline(deadline); err != nil {
			return protocol.Greeting{}, err
		}
		defer dl.SetDeadline(time.Time{})
	}

	g, err := protocol.NewGreeting(local, identity).Msg()
	if err != nil {
		return protocol.Greeting{}, err
	}
	if err := conn.WriteFrame(&g); err != nil {
		return protocol.Greeting{}, fmt.Errorf("send greeting: %w", err)
	}
	if err := conn.Flush(); err != nil {
		return protocol.Greeting{}, fmt.Errorf("send greeting: %w", err)
	}

	var in msg.Msg
	if err := conn.ReadFrame(&in); err != nil {
		return protocol.Greeting{}, fmt.Errorf("read greeting: %w", err)
	}
	defer in.Close()
	peer, err := protocol.ParseGreeting(&in)
	if err != nil {
		return peer, err
	}
	pt, err := peer.Type()
	if err != nil {
		return peer, fmt.Errorf("%w: %v", api.ErrProtocol, err)
	}
	if !protocol.Compatible(local, pt) {
		return peer, api.NewError(api.ErrCodeProtocol, "incompatible socket types").
			WithContext("local", local.String()).
			WithContext("remote", pt.String())
	}
	return peer, nil
}

// Start performs the handshake, attaches a new pipe to host and runs the
// engine until the connection fails, the socket terminates the pipe, ctx is
// cancelled or Close is called. On handshake failure conn is closed.
func Start(ctx context.Context, conn FrameConn, host api.Host, cfg Config) (*Engine, error) {
	peer, err := Handshake(ctx, conn, host.Type(), host.Identity(), cfg.HandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return attach(ctx, conn, host, cfg, peer), nil
}

// Attach runs an engine on a connection that needs no greeting, such as a
// bridge to a foreign protocol stack.
func Attach(ctx context.Context, conn FrameConn, host api.Host, cfg Config) *Engine {
	return attach(ctx, conn, host, cfg, protocol.Greeting{})
}

func attach(ctx context.Context, conn FrameConn, host api.Host, cfg Config, peer protocol.Greeting) *Engine {
	pc := host.PipeConfig()
	e := &Engine{
		conn:     conn,
		host:     host,
		cfg:      cfg,
		peer:     peer,
		log:      host.Logger().With("endpoint", cfg.Endpoint),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		term:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	near, far := pipe.NewPair(pipe.Config{AToB: pc.SndHWM, BToA: pc.RcvHWM}, host.Sink(), e)
	e.pipe = far

	ctx, e.cancel = context.WithCancel(ctx)
	go e.run(ctx)
	host.Sink().Post(api.Command{Kind: api.CmdAttach, Pipe: near})
	e.log.Debug("engine started", "peer_type", peer.SocketType, "pipe", near.ID())
	return e
}

// Peer returns the greeting received from the remote socket. It is empty
// for engines started with Attach.
func (e *Engine) Peer() protocol.Greeting { return e.peer }

// Done is closed once the engine has stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Err returns the reason the engine stopped. Valid after Done.
func (e *Engine) Err() error { return e.err }

// Close stops the engine and waits for it.
func (e *Engine) Close() error {
	e.cancel()
	<-e.done
	return nil
}

// Post implements api.Sink for the engine's pipe end.
func (e *Engine) Post(cmd api.Command) {
	switch cmd.Kind {
	case api.CmdActivateRead:
		wake(e.readable)
	case api.CmdActivateWrite:
		wake(e.writable)
	case api.CmdPipeTerm:
		e.termOnce.Do(func() { close(e.term) })
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.outbound(gctx) })
	g.Go(func() error { return e.inbound(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		// Unblocks a pending ReadFrame.
		return e.conn.Close()
	})
	err := g.Wait()

	e.pipe.Terminate()
	if errors.Is(err, errTerminated) || errors.Is(err, context.Canceled) {
		err = nil
	}
	e.err = err
	if err != nil {
		e.log.Debug("engine stopped", "err", err)
	} else {
		e.log.Debug("engine stopped")
	}
	if e.cfg.OnClose != nil {
		e.cfg.OnClose(e, err)
	}
}

// outbound moves frames written by the socket onto the connection.
func (e *Engine) outbound(ctx context.Context) error {
	for {
		var m msg.Msg
		if e.pipe.Read(&m) {
			err := e.conn.WriteFrame(&m)
			m.Close()
			if err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			continue
		}
		if err := e.conn.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		select {
		case <-e.readable:
		case <-e.term:
			return errTerminated
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// inbound moves frames from the connection into the pipe, waiting for
// reactivation while the pipe is at its high watermark.
func (e *Engine) inbound(ctx context.Context) error {
	for {
		var m msg.Msg
		if err := e.conn.ReadFrame(&m); err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if m.IsCommand() {
			m.Close()
			continue
		}
		for !e.pipe.Write(&m) {
			if e.pipe.State() == api.PipeTerminated || e.pipe.State() == api.PipeTerminating {
				m.Close()
				return errTerminated
			}
			select {
			case <-e.writable:
			case <-e.term:
				m.Close()
				return errTerminated
			case <-ctx.Done():
				m.Close()
				return ctx.Err()
			}
		}
	}
}

// File: socket/socket.go
// Package socket is the public messaging socket API.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Socket belongs to the goroutine using it. Transports and peer pipes talk
// to it only through its mailbox, which is drained at the start of every
// call. Blocking and timeouts are implemented here by waiting on the mailbox
// signal; the pattern underneath never blocks.

package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/mailbox"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/pattern"
	"github.com/momentics/hioload-mq/internal/logger"
)

// Config creates a Socket.
type Config struct {
	Type       api.SocketType
	Transports []api.Transport
	Options    *Options
	Logger     *slog.Logger
	// MailboxSize is the command ring size; 0 selects the default.
	MailboxSize int
	// OnClose runs at the end of the first Close.
	OnClose func(*Socket)
}

type endpoint struct {
	uri string
	// resolved differs from uri when the transport picked, for example, an
	// ephemeral port.
	resolved string
	closer   io.Closer
}

// boundAddr is implemented by endpoint closers that know their actual
// address.
type boundAddr interface {
	Endpoint() string
}

// Socket multiplexes pipes to many peers behind one send/recv interface.
type Socket struct {
	id         uuid.UUID
	typ        api.SocketType
	pattern    pattern.Pattern
	mb         *mailbox.Mailbox
	sink       *sink
	transports map[string]api.Transport
	log        *slog.Logger

	optMu sync.RWMutex
	opts  Options

	onClose   func(*Socket)
	pipes     map[uuid.UUID]api.Pipe
	endpoints []endpoint
	rcvMore   bool
	closed    bool

	stats counters
}

var _ api.Host = (*Socket)(nil)

type counters struct {
	pipes    atomic.Int64
	sent     atomic.Uint64
	received atomic.Uint64
	sendWB   atomic.Uint64
	recvWB   atomic.Uint64
}

// sink guards the mailbox against commands arriving after Close. A late
// attach is refused by terminating the pipe instead of queueing it.
type sink struct {
	mu     sync.RWMutex
	closed bool
	mb     *mailbox.Mailbox
}

func (s *sink) Post(cmd api.Command) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		if cmd.Kind == api.CmdAttach && cmd.Pipe != nil {
			cmd.Pipe.Terminate()
		}
		return
	}
	s.mb.Post(cmd)
}

// close waits out in-flight posts. A producer may be parked on a full ring,
// so drain keeps the consumer side moving meanwhile.
func (s *sink) close(drain func()) {
	for !s.mu.TryLock() {
		drain()
		runtime.Gosched()
	}
	s.closed = true
	s.mu.Unlock()
}

// New creates a socket of cfg.Type.
func New(cfg Config) (*Socket, error) {
	p, err := pattern.New(cfg.Type)
	if err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	if cfg.Options != nil {
		opts = *cfg.Options
	}
	id := uuid.New()
	if len(opts.Identity) == 0 {
		opts.Identity = id[:]
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Logger("socket")
	}
	mb := mailbox.New(cfg.MailboxSize)

	s := &Socket{
		id:         id,
		typ:        cfg.Type,
		pattern:    p,
		mb:         mb,
		sink:       &sink{mb: mb},
		transports: make(map[string]api.Transport),
		log:        log.With("socket", id.String()[:8], "type", cfg.Type.String()),
		opts:       opts,
		onClose:    cfg.OnClose,
		pipes:      make(map[uuid.UUID]api.Pipe),
	}
	for _, t := range cfg.Transports {
		for _, scheme := range t.Schemes() {
			s.transports[scheme] = t
		}
	}
	return s, nil
}

// ID identifies the socket in logs and metrics.
func (s *Socket) ID() uuid.UUID { return s.id }

// Sink implements api.Host. Safe for concurrent use.
func (s *Socket) Sink() api.Sink { return s.sink }

// PipeConfig implements api.Host.
func (s *Socket) PipeConfig() api.PipeConfig {
	s.optMu.RLock()
	defer s.optMu.RUnlock()
	return s.opts.pipeConfig()
}

// Type implements api.Host.
func (s *Socket) Type() api.SocketType { return s.typ }

// Identity implements api.Host.
func (s *Socket) Identity() []byte {
	s.optMu.RLock()
	defer s.optMu.RUnlock()
	return append([]byte(nil), s.opts.Identity...)
}

// Logger implements api.Host.
func (s *Socket) Logger() *slog.Logger { return s.log }

// SetOption changes a socket option. HWM changes apply to pipes created
// afterwards.
func (s *Socket) SetOption(opt api.Option, value any) error {
	if s.closed {
		return api.ErrClosed
	}
	s.optMu.Lock()
	defer s.optMu.Unlock()
	return s.opts.set(opt, value)
}

// GetOption reads a socket option. OptRcvMore reports whether the last
// received frame has more frames following.
func (s *Socket) GetOption(opt api.Option) (any, error) {
	switch opt {
	case api.OptRcvMore:
		return s.rcvMore, nil
	case api.OptType:
		return s.typ, nil
	}
	s.optMu.RLock()
	defer s.optMu.RUnlock()
	return s.opts.get(opt)
}

// RcvMore is shorthand for GetOption(api.OptRcvMore).
func (s *Socket) RcvMore() bool { return s.rcvMore }

// Bind listens on endpoint.
func (s *Socket) Bind(endpoint string) error {
	return s.attachEndpoint(context.Background(), endpoint, true)
}

// Connect dials endpoint. Depending on the transport the connection may
// complete asynchronously.
func (s *Socket) Connect(endpoint string) error {
	return s.attachEndpoint(context.Background(), endpoint, false)
}

// BindContext is Bind bounded by ctx.
func (s *Socket) BindContext(ctx context.Context, endpoint string) error {
	return s.attachEndpoint(ctx, endpoint, true)
}

// ConnectContext is Connect bounded by ctx.
func (s *Socket) ConnectContext(ctx context.Context, endpoint string) error {
	return s.attachEndpoint(ctx, endpoint, false)
}

func (s *Socket) attachEndpoint(ctx context.Context, uri string, bind bool) error {
	if s.closed {
		return api.ErrClosed
	}
	scheme, addr, err := ParseEndpoint(uri)
	if err != nil {
		return err
	}
	t, ok := s.transports[scheme]
	if !ok {
		return api.NewError(api.ErrCodeNotSupported, "no transport for scheme").
			WithContext("scheme", scheme)
	}
	var c io.Closer
	if bind {
		c, err = t.Bind(ctx, addr, s)
	} else {
		c, err = t.Connect(ctx, addr, s)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb(bind), uri, err)
	}
	ep := endpoint{uri: uri, resolved: uri, closer: c}
	if ba, ok := c.(boundAddr); ok {
		ep.resolved = scheme + "://" + ba.Endpoint()
	}
	s.endpoints = append(s.endpoints, ep)
	s.log.Debug("endpoint added", "op", verb(bind), "endpoint", ep.resolved)
	s.process()
	return nil
}

func verb(bind bool) string {
	if bind {
		return "bind"
	}
	return "connect"
}

// Unbind closes every endpoint added with exactly this URI.
func (s *Socket) Unbind(uri string) error {
	if s.closed {
		return api.ErrClosed
	}
	var err error
	found := false
	kept := s.endpoints[:0]
	for _, ep := range s.endpoints {
		if ep.uri == uri || ep.resolved == uri {
			found = true
			err = multierr.Append(err, ep.closer.Close())
			continue
		}
		kept = append(kept, ep)
	}
	s.endpoints = kept
	if !found {
		return api.NewError(api.ErrCodeNotFound, "endpoint not found").WithContext("endpoint", uri)
	}
	s.process()
	return err
}

// Disconnect is Unbind for connected endpoints.
func (s *Socket) Disconnect(uri string) error { return s.Unbind(uri) }

// Endpoints lists bound and connected URIs as resolved by their transports.
func (s *Socket) Endpoints() []string {
	out := make([]string, len(s.endpoints))
	for i, ep := range s.endpoints {
		out[i] = ep.resolved
	}
	return out
}

// LastEndpoint returns the most recently added endpoint, or "".
func (s *Socket) LastEndpoint() string {
	if len(s.endpoints) == 0 {
		return ""
	}
	return s.endpoints[len(s.endpoints)-1].resolved
}

// Send queues one frame. SndMore marks a continuation frame; DontWait
// returns api.ErrAgain instead of waiting for capacity. On success m is left
// empty; on failure it is untouched.
func (s *Socket) Send(m *msg.Msg, flags api.Flags) error {
	return s.SendContext(context.Background(), m, flags)
}

// SendContext is Send bounded by ctx in addition to the send timeout.
func (s *Socket) SendContext(ctx context.Context, m *msg.Msg, flags api.Flags) error {
	if s.closed {
		return api.ErrClosed
	}
	more := flags&api.SndMore != 0
	err := s.retry(ctx, s.timeout(flags, true), func() error {
		return s.pattern.Send(m, flags)
	})
	switch {
	case err == nil:
		if !more {
			s.stats.sent.Add(1)
		}
	case errors.Is(err, api.ErrAgain):
		s.stats.sendWB.Add(1)
	}
	return err
}

// Recv delivers one frame into m. Check RcvMore afterwards to see whether
// the message continues.
func (s *Socket) Recv(m *msg.Msg, flags api.Flags) error {
	return s.RecvContext(context.Background(), m, flags)
}

// RecvContext is Recv bounded by ctx in addition to the receive timeout.
func (s *Socket) RecvContext(ctx context.Context, m *msg.Msg, flags api.Flags) error {
	if s.closed {
		return api.ErrClosed
	}
	cont := s.rcvMore
	timeout := s.timeout(flags, false)
	if cont {
		// Messages are flushed whole: the rest is queued already or was
		// lost with its pipe.
		timeout = 0
	}
	err := s.retry(ctx, timeout, func() error {
		return s.pattern.Recv(m, flags)
	})
	switch {
	case err == nil:
		s.rcvMore = m.More()
		if !s.rcvMore {
			s.stats.received.Add(1)
		}
	case errors.Is(err, api.ErrAgain):
		if cont {
			// The message ended short.
			s.rcvMore = false
			s.stats.received.Add(1)
			break
		}
		s.stats.recvWB.Add(1)
	}
	return err
}

// SendBytes sends b as one frame.
func (s *Socket) SendBytes(b []byte, flags api.Flags) error {
	m := msg.New(b)
	return s.Send(&m, flags)
}

// RecvBytes receives one frame and returns a private copy of its payload.
func (s *Socket) RecvBytes(flags api.Flags) ([]byte, error) {
	var m msg.Msg
	if err := s.Recv(&m, flags); err != nil {
		return nil, err
	}
	defer m.Close()
	cp := m.Copy()
	return cp.Bytes(), nil
}

// SendMessage sends parts as one multi-frame message. Only the first frame
// may fail with api.ErrAgain; later frames follow the same pipe.
func (s *Socket) SendMessage(flags api.Flags, parts ...[]byte) error {
	if len(parts) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "empty message")
	}
	for i, p := range parts {
		f := flags &^ api.SndMore
		if i < len(parts)-1 {
			f |= api.SndMore
		}
		if err := s.SendBytes(p, f); err != nil {
			return err
		}
	}
	return nil
}

// RecvMessage receives all frames of the next message. A message whose pipe
// terminated before the final frame is returned with the frames that arrived.
func (s *Socket) RecvMessage(flags api.Flags) ([][]byte, error) {
	var parts [][]byte
	for {
		b, err := s.RecvBytes(flags)
		if err != nil {
			if len(parts) > 0 && errors.Is(err, api.ErrAgain) {
				// Source pipe terminated before the final frame.
				return parts, nil
			}
			return parts, err
		}
		parts = append(parts, b)
		if !s.rcvMore {
			return parts, nil
		}
	}
}

// HasIn reports whether Recv would return a frame without waiting. A
// positive answer buffers that frame for the next Recv.
func (s *Socket) HasIn() bool {
	if s.closed {
		return false
	}
	s.process()
	return s.pattern.HasIn()
}

// HasOut reports whether Send would accept a frame without waiting.
func (s *Socket) HasOut() bool {
	if s.closed {
		return false
	}
	s.process()
	return s.pattern.HasOut()
}

// Stats returns counters. Safe for concurrent use. Pipes changes only when
// the owning goroutine drains the mailbox, so it lags attach and detach
// until the next call on the socket.
func (s *Socket) Stats() api.SocketStats {
	return api.SocketStats{
		Pipes:          int(s.stats.pipes.Load()),
		MsgsSent:       s.stats.sent.Load(),
		MsgsReceived:   s.stats.received.Load(),
		SendWouldBlock: s.stats.sendWB.Load(),
		RecvWouldBlock: s.stats.recvWB.Load(),
	}
}

// Close terminates all pipes and endpoints. Further calls report
// api.ErrClosed.
func (s *Socket) Close() error {
	if s.closed {
		return api.ErrClosed
	}
	s.sink.close(s.process)
	s.process()
	s.closed = true

	for id, p := range s.pipes {
		p.Terminate()
		s.pattern.PipeTerminated(p)
		delete(s.pipes, id)
		s.stats.pipes.Add(-1)
	}

	var err error
	for _, ep := range s.endpoints {
		err = multierr.Append(err, ep.closer.Close())
	}
	s.endpoints = nil

	// Commands queued before the sink closed.
	s.mb.Drain(s.apply)
	s.pattern.Close()
	s.mb.Close()
	s.log.Debug("socket closed")
	if s.onClose != nil {
		s.onClose(s)
	}
	return err
}

func (s *Socket) timeout(flags api.Flags, send bool) time.Duration {
	if flags&api.DontWait != 0 {
		return 0
	}
	s.optMu.RLock()
	defer s.optMu.RUnlock()
	if send {
		return s.opts.SndTimeout
	}
	return s.opts.RcvTimeout
}

// retry runs op until it stops reporting api.ErrAgain, the timeout expires
// or ctx is done.
func (s *Socket) retry(ctx context.Context, timeout time.Duration, op func() error) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		s.process()
		err := op()
		if !errors.Is(err, api.ErrAgain) || timeout == 0 {
			return err
		}
		wait := time.Duration(-1)
		if timeout > 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return api.ErrAgain
			}
		}
		if werr := s.mb.Wait(ctx, wait); werr != nil {
			return werr
		}
	}
}

// process applies queued commands in arrival order.
func (s *Socket) process() {
	s.mb.Drain(s.apply)
}

func (s *Socket) apply(cmd api.Command) {
	p := cmd.Pipe
	if p == nil {
		return
	}
	switch cmd.Kind {
	case api.CmdAttach:
		if s.closed {
			p.Terminate()
			return
		}
		if err := s.pattern.AttachPipe(p); err != nil {
			s.log.Warn("pipe attach refused", "pipe", p.ID(), "err", err)
			p.Terminate()
			return
		}
		s.pipes[p.ID()] = p
		s.stats.pipes.Add(1)
		s.log.Debug("pipe attached", "pipe", p.ID())
	case api.CmdActivateRead:
		s.pattern.ReadActivated(p)
	case api.CmdActivateWrite:
		s.pattern.WriteActivated(p)
	case api.CmdPipeTerm:
		if _, ok := s.pipes[p.ID()]; !ok {
			return
		}
		s.pattern.PipeTerminated(p)
		delete(s.pipes, p.ID())
		s.stats.pipes.Add(-1)
		p.Terminate()
		s.log.Debug("pipe detached", "pipe", p.ID())
	}
}

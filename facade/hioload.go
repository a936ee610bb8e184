// File: facade/hioload.go
// Package facade wires transports, pools and control into one context that
// creates sockets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A HioloadMQ owns the shared inproc namespace, the frame buffer pool, the
// runtime-tunable socket defaults and the metrics endpoint. Sockets created
// from it are still owned by the goroutine using them.

package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-mq/adapters"
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/internal/logger"
	"github.com/momentics/hioload-mq/pool"
	"github.com/momentics/hioload-mq/socket"
	"github.com/momentics/hioload-mq/transport/inproc"
	"github.com/momentics/hioload-mq/transport/stream"
	"github.com/momentics/hioload-mq/transport/ws"
	"github.com/momentics/hioload-mq/transport/zmtp"
)

// HioloadMQ is the library context.
type HioloadMQ struct {
	cfg        *Config
	log        *slog.Logger
	control    *adapters.ControlAdapter
	exporter   *control.Exporter
	pool       *pool.BytePool
	inproc     *inproc.Registry
	transports []api.Transport

	mu      sync.Mutex
	sockets map[uuid.UUID]*socket.Socket
	closed  bool

	metricsSrv *http.Server
	metricsLn  net.Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*HioloadMQ)(nil)

// New creates a context. A nil cfg selects DefaultConfig.
func New(cfg *Config) (*HioloadMQ, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	h := &HioloadMQ{
		cfg:     cfg,
		log:     logger.Logger("facade"),
		control: adapters.NewControlAdapter(),
		pool:    pool.NewBytePool(cfg.Pool.SlabCapacity),
		inproc:  inproc.NewRegistry(),
		sockets: make(map[uuid.UUID]*socket.Socket),
	}
	if err := h.control.SetConfig(cfg.Socket.values()); err != nil {
		return nil, err
	}
	h.control.RegisterDebugProbe("pool", func() any { return h.pool.Stats() })
	h.control.RegisterDebugProbe("inproc.endpoints", func() any { return h.inproc.Names() })
	h.exporter = control.NewExporter(cfg.Metrics.Namespace, h.control.Metrics())

	h.transports = []api.Transport{inproc.New(h.inproc)}
	t := cfg.Transports
	streamOpts := []stream.Option{stream.WithPool(h.pool), stream.WithHandshakeTimeout(t.HandshakeTimeout)}
	if *t.TCP {
		h.transports = append(h.transports, stream.NewTCP(streamOpts...))
	}
	if *t.IPC {
		h.transports = append(h.transports, stream.NewIPC(streamOpts...))
	}
	if *t.WS {
		h.transports = append(h.transports, ws.New(h.pool))
	}
	if *t.ZMTP {
		h.transports = append(h.transports, zmtp.New())
	}

	h.cancel = func() {}
	if cfg.Metrics.Addr != "" {
		if err := h.serveMetrics(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// NewFromFile loads path and creates a context. With reload enabled the
// file is watched and socket defaults follow its changes.
func NewFromFile(path string) (*HioloadMQ, error) {
	cfg, err := LoadAndValidate(path)
	if err != nil {
		return nil, err
	}
	h, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Reload.Enabled {
		h.Watch(path, cfg.Reload.Interval)
	}
	return h, nil
}

// Watch reloads socket defaults from path whenever it changes, until Close.
func (h *HioloadMQ) Watch(path string, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	prev := h.cancel
	h.cancel = func() { prev(); cancel() }
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		control.WatchFile(ctx, path, interval, h.log, func() error {
			cfg, err := LoadAndValidate(path)
			if err != nil {
				return err
			}
			return h.control.SetConfig(cfg.Socket.values())
		})
	}()
}

// Control returns the runtime configuration and metrics interface.
func (h *HioloadMQ) Control() api.Control { return h.control }

// Pool returns the shared frame buffer pool.
func (h *HioloadMQ) Pool() *pool.BytePool { return h.pool }

// Transports returns the registered transports.
func (h *HioloadMQ) Transports() []api.Transport { return h.transports }

// SocketOptions returns the current defaults for new sockets.
func (h *HioloadMQ) SocketOptions() socket.Options {
	cs := h.control.Config()
	o := socket.DefaultOptions()
	o.SndHWM = cs.Int(control.KeySndHWM, o.SndHWM)
	o.RcvHWM = cs.Int(control.KeyRcvHWM, o.RcvHWM)
	o.SndTimeout = cs.Duration(control.KeySndTimeout, o.SndTimeout)
	o.RcvTimeout = cs.Duration(control.KeyRcvTimeout, o.RcvTimeout)
	o.ReconnectIvl = cs.Duration(control.KeyReconnectIvl, o.ReconnectIvl)
	o.ReconnectIvlMax = cs.Duration(control.KeyReconnectIvlMax, o.ReconnectIvlMax)
	o.MaxMsgSize = int64(cs.Int(control.KeyMaxMsgSize, int(o.MaxMsgSize)))
	o.IPv4Only = cs.Bool(control.KeyIPv4Only, o.IPv4Only)
	return o
}

// NewSocket creates a socket of type t using the current defaults.
func (h *HioloadMQ) NewSocket(t api.SocketType) (*socket.Socket, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, api.ErrClosed
	}
	opts := h.SocketOptions()
	s, err := socket.New(socket.Config{
		Type:        t,
		Transports:  h.transports,
		Options:     &opts,
		MailboxSize: h.cfg.Socket.MailboxSize,
		OnClose:     h.forget,
	})
	if err != nil {
		return nil, err
	}
	h.sockets[s.ID()] = s
	h.control.RegisterDebugProbe(probeName(s), func() any { return s.Stats() })
	h.control.Metrics().Add("sockets.open", 1)
	return s, nil
}

func probeName(s *socket.Socket) string {
	return "socket." + s.ID().String()
}

func (h *HioloadMQ) forget(s *socket.Socket) {
	h.mu.Lock()
	_, ok := h.sockets[s.ID()]
	delete(h.sockets, s.ID())
	h.mu.Unlock()
	if !ok {
		return
	}
	h.control.UnregisterDebugProbe(probeName(s))
	h.control.Metrics().Add("sockets.open", -1)
}

// refreshMetrics folds socket counters into the metrics registry.
func (h *HioloadMQ) refreshMetrics() {
	h.mu.Lock()
	var total api.SocketStats
	for _, s := range h.sockets {
		st := s.Stats()
		total.Pipes += st.Pipes
		total.MsgsSent += st.MsgsSent
		total.MsgsReceived += st.MsgsReceived
		total.SendWouldBlock += st.SendWouldBlock
		total.RecvWouldBlock += st.RecvWouldBlock
	}
	h.mu.Unlock()

	ps := h.pool.Stats()
	h.control.Metrics().SetAll(map[string]any{
		"pipes.attached":    total.Pipes,
		"messages.sent":     total.MsgsSent,
		"messages.received": total.MsgsReceived,
		"send.would_block":  total.SendWouldBlock,
		"recv.would_block":  total.RecvWouldBlock,
		"pool.allocated":    ps.Allocated,
		"pool.reused":       ps.Reused,
	})
}

// MetricsHandler serves current metrics in the Prometheus format.
func (h *HioloadMQ) MetricsHandler() http.Handler {
	inner := h.exporter.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.refreshMetrics()
		inner.ServeHTTP(w, r)
	})
}

func (h *HioloadMQ) serveMetrics(addr, path string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(path, h.MetricsHandler())
	h.metricsLn = ln
	h.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("metrics server stopped", "err", err)
		}
	}()
	h.log.Info("metrics listening", "addr", ln.Addr().String(), "path", path)
	return nil
}

// MetricsAddr returns the metrics listener address, or "" when disabled.
func (h *HioloadMQ) MetricsAddr() string {
	if h.metricsLn == nil {
		return ""
	}
	return h.metricsLn.Addr().String()
}

// Close closes every socket still open, then stops the watcher and the
// metrics endpoint. Sockets must no longer be in use by other goroutines.
func (h *HioloadMQ) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	socks := make([]*socket.Socket, 0, len(h.sockets))
	for _, s := range h.sockets {
		socks = append(socks, s)
	}
	cancel := h.cancel
	h.mu.Unlock()

	var err error
	for _, s := range socks {
		if cerr := s.Close(); cerr != nil && !errors.Is(cerr, api.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	cancel()
	if h.metricsSrv != nil {
		err = multierr.Append(err, h.metricsSrv.Close())
	}
	h.wg.Wait()
	return err
}

// Shutdown implements api.GracefulShutdown by delegating to Close().
func (h *HioloadMQ) Shutdown() error {
	return h.Close()
}

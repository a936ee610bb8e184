package socket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/internal/logger"
	"github.com/momentics/hioload-mq/transport/inproc"
)

// bounceContent is 32 bytes so frames cross the short-length boundary in
// wire codecs unchanged.
const bounceContent = "12345678ABCDEFGH12345678abcdefgh"

func newSocket(t *testing.T, typ api.SocketType, tr api.Transport, opts *Options) *Socket {
	t.Helper()
	s, err := New(Config{Type: typ, Transports: []api.Transport{tr}, Options: opts, Logger: logger.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func connectedPair(t *testing.T, opts *Options) (server, client *Socket) {
	t.Helper()
	tr := inproc.New(nil)
	server = newSocket(t, api.Dealer, tr, opts)
	client = newSocket(t, api.Dealer, tr, opts)
	require.NoError(t, server.Bind("inproc://pair"))
	require.NoError(t, client.Connect("inproc://pair"))
	return server, client
}

func bounce(t *testing.T, server, client *Socket) {
	t.Helper()
	require.NoError(t, client.SendBytes([]byte(bounceContent), api.SndMore))
	require.NoError(t, client.SendBytes([]byte(bounceContent), 0))

	first, err := server.RecvBytes(0)
	require.NoError(t, err)
	assert.True(t, server.RcvMore())
	second, err := server.RecvBytes(0)
	require.NoError(t, err)
	assert.False(t, server.RcvMore())

	require.NoError(t, server.SendBytes(first, api.SndMore))
	require.NoError(t, server.SendBytes(second, 0))

	got, err := client.RecvMessage(0)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte(bounceContent), []byte(bounceContent)}, got)
	more, err := client.GetOption(api.OptRcvMore)
	require.NoError(t, err)
	assert.Equal(t, false, more)
}

func TestSocket_Bounce(t *testing.T) {
	server, client := connectedPair(t, nil)
	bounce(t, server, client)
	bounce(t, server, client)

	st := server.Stats()
	assert.Equal(t, 1, st.Pipes)
	assert.Equal(t, uint64(2), st.MsgsReceived)
	assert.Equal(t, uint64(2), st.MsgsSent)
}

func TestSocket_FairQueueAcrossPeers(t *testing.T) {
	tr := inproc.New(nil)
	server := newSocket(t, api.Dealer, tr, nil)
	require.NoError(t, server.Bind("inproc://fq"))
	b := newSocket(t, api.Dealer, tr, nil)
	c := newSocket(t, api.Dealer, tr, nil)
	require.NoError(t, b.Connect("inproc://fq"))
	require.NoError(t, c.Connect("inproc://fq"))

	for _, s := range []string{"b1", "b2"} {
		require.NoError(t, b.SendBytes([]byte(s), 0))
	}
	for _, s := range []string{"c1", "c2"} {
		require.NoError(t, c.SendBytes([]byte(s), 0))
	}

	var got []string
	for i := 0; i < 4; i++ {
		p, err := server.RecvBytes(api.DontWait)
		require.NoError(t, err)
		got = append(got, string(p))
	}
	assert.Equal(t, []string{"b1", "c1", "b2", "c2"}, got)

	_, err := server.RecvBytes(api.DontWait)
	assert.ErrorIs(t, err, api.ErrAgain)
}

func TestSocket_LoadBalanceAcrossPeers(t *testing.T) {
	tr := inproc.New(nil)
	server := newSocket(t, api.Dealer, tr, nil)
	require.NoError(t, server.Bind("inproc://lb"))
	b := newSocket(t, api.Dealer, tr, nil)
	c := newSocket(t, api.Dealer, tr, nil)
	require.NoError(t, b.Connect("inproc://lb"))
	require.NoError(t, c.Connect("inproc://lb"))

	for _, s := range []string{"1", "2", "3", "4"} {
		require.NoError(t, server.SendBytes([]byte(s), api.DontWait))
	}

	gotB, err := b.RecvBytes(api.DontWait)
	require.NoError(t, err)
	gotC, err := c.RecvBytes(api.DontWait)
	require.NoError(t, err)
	assert.Equal(t, "1", string(gotB))
	assert.Equal(t, "2", string(gotC))
}

func TestSocket_DontWaitAndTimeout(t *testing.T) {
	server, _ := connectedPair(t, nil)

	_, err := server.RecvBytes(api.DontWait)
	assert.ErrorIs(t, err, api.ErrAgain)
	assert.Equal(t, uint64(1), server.Stats().RecvWouldBlock)

	require.NoError(t, server.SetOption(api.OptRcvTimeout, 20*time.Millisecond))
	start := time.Now()
	_, err = server.RecvBytes(0)
	assert.ErrorIs(t, err, api.ErrAgain)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSocket_RecvContextCancelled(t *testing.T) {
	server, _ := connectedPair(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var m msg.Msg
	err := server.RecvContext(ctx, &m, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSocket_BlockingRecvWakesOnSend(t *testing.T) {
	server, client := connectedPair(t, nil)
	require.True(t, client.HasOut())

	done := make(chan error, 1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		done <- client.SendBytes([]byte("late"), 0)
	}()

	got, err := server.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "late", string(got))
	require.NoError(t, <-done)
}

func TestSocket_HighWatermark(t *testing.T) {
	opts := DefaultOptions()
	opts.SndHWM, opts.RcvHWM = 1, 1
	server, client := connectedPair(t, &opts)

	// Direction limit is sender SndHWM plus receiver RcvHWM.
	require.NoError(t, client.SendBytes([]byte("1"), api.DontWait))
	require.NoError(t, client.SendBytes([]byte("2"), api.DontWait))
	err := client.SendBytes([]byte("3"), api.DontWait)
	assert.ErrorIs(t, err, api.ErrAgain)
	assert.False(t, client.HasOut())
	assert.Equal(t, uint64(1), client.Stats().SendWouldBlock)

	got, err := server.RecvBytes(api.DontWait)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	assert.True(t, client.HasOut())
	require.NoError(t, client.SendBytes([]byte("3"), api.DontWait))
}

func TestSocket_Endpoints(t *testing.T) {
	tr := inproc.New(nil)
	s := newSocket(t, api.Dealer, tr, nil)

	err := s.Connect("inproc://nobody")
	assert.ErrorIs(t, err, api.ErrConnRefused)

	err = s.Bind("tcp://127.0.0.1:5555")
	assert.ErrorIs(t, err, api.ErrNotSupported)

	err = s.Bind("no-scheme")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	require.NoError(t, s.Bind("inproc://here"))
	other := newSocket(t, api.Dealer, tr, nil)
	assert.ErrorIs(t, other.Bind("inproc://here"), api.ErrAddrInUse)
	assert.Equal(t, []string{"inproc://here"}, s.Endpoints())

	require.NoError(t, s.Unbind("inproc://here"))
	assert.Empty(t, s.Endpoints())
	assert.ErrorIs(t, s.Unbind("inproc://here"), api.ErrNotFound)
	require.NoError(t, other.Bind("inproc://here"))
}

func TestSocket_IncompatibleTypes(t *testing.T) {
	tr := inproc.New(nil)
	push := newSocket(t, api.Push, tr, nil)
	other := newSocket(t, api.Push, tr, nil)
	require.NoError(t, push.Bind("inproc://p"))
	assert.ErrorIs(t, other.Connect("inproc://p"), api.ErrProtocol)
}

func TestSocket_PushPull(t *testing.T) {
	tr := inproc.New(nil)
	pull := newSocket(t, api.Pull, tr, nil)
	push := newSocket(t, api.Push, tr, nil)
	require.NoError(t, pull.Bind("inproc://pipeline"))
	require.NoError(t, push.Connect("inproc://pipeline"))

	require.NoError(t, push.SendMessage(0, []byte("a"), []byte("b")))
	got, err := pull.RecvMessage(api.DontWait)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, got)

	assert.ErrorIs(t, pull.SendBytes([]byte("x"), 0), api.ErrNotSupported)
	_, err = push.RecvBytes(api.DontWait)
	assert.ErrorIs(t, err, api.ErrNotSupported)
}

func TestSocket_Options(t *testing.T) {
	s := newSocket(t, api.Dealer, inproc.New(nil), nil)

	typ, err := s.GetOption(api.OptType)
	require.NoError(t, err)
	assert.Equal(t, api.Dealer, typ)

	id, err := s.GetOption(api.OptIdentity)
	require.NoError(t, err)
	assert.Len(t, id, 16)

	require.NoError(t, s.SetOption(api.OptIdentity, "worker-1"))
	assert.Equal(t, []byte("worker-1"), s.Identity())

	require.NoError(t, s.SetOption(api.OptSndHWM, 10))
	assert.Equal(t, 10, s.PipeConfig().SndHWM)

	require.NoError(t, s.SetOption(api.OptSndTimeout, 250))
	v, err := s.GetOption(api.OptSndTimeout)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, v)

	cases := []struct {
		name  string
		opt   api.Option
		value any
	}{
		{"negative hwm", api.OptRcvHWM, -1},
		{"hwm wrong type", api.OptRcvHWM, "ten"},
		{"empty identity", api.OptIdentity, ""},
		{"identity too long", api.OptIdentity, make([]byte, MaxIdentityLen+1)},
		{"rcvmore read-only", api.OptRcvMore, true},
		{"type read-only", api.OptType, api.Push},
		{"ipv4only wrong type", api.OptIPv4Only, 1},
		{"negative reconnect", api.OptReconnectIvl, -5 * time.Second},
		{"unknown", api.Option(999), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, s.SetOption(tc.opt, tc.value), api.ErrInvalidArgument)
		})
	}
}

func TestSocket_CloseDetachesPeer(t *testing.T) {
	server, client := connectedPair(t, nil)
	require.True(t, client.HasOut())
	// Pipes is updated when the socket drains its mailbox.
	require.True(t, server.HasOut())
	require.Equal(t, 1, server.Stats().Pipes)
	require.Equal(t, 1, client.Stats().Pipes)

	require.NoError(t, server.Close())
	assert.ErrorIs(t, server.Close(), api.ErrClosed)
	assert.ErrorIs(t, server.SendBytes([]byte("x"), 0), api.ErrClosed)
	_, err := server.RecvBytes(0)
	assert.ErrorIs(t, err, api.ErrClosed)
	assert.ErrorIs(t, server.Bind("inproc://again"), api.ErrClosed)

	assert.False(t, client.HasOut())
	assert.Equal(t, 0, client.Stats().Pipes)
	err = client.SendBytes([]byte("x"), api.DontWait)
	assert.ErrorIs(t, err, api.ErrAgain)
}

func TestSocket_MessageOutlivesSenderClose(t *testing.T) {
	tr := inproc.New(nil)
	server := newSocket(t, api.Dealer, tr, nil)
	require.NoError(t, server.Bind("inproc://outlive"))
	a := newSocket(t, api.Dealer, tr, nil)
	b := newSocket(t, api.Dealer, tr, nil)
	require.NoError(t, a.Connect("inproc://outlive"))

	require.NoError(t, a.SendMessage(0, []byte("g1"), []byte("g2")))
	require.Eventually(t, server.HasIn, time.Second, time.Millisecond)
	require.NoError(t, a.Close())

	require.NoError(t, b.Connect("inproc://outlive"))
	require.NoError(t, b.SendBytes([]byte("OTHER"), 0))

	got, err := server.RecvMessage(api.DontWait)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("g1"), []byte("g2")}, got)
	assert.False(t, server.RcvMore())

	other, err := server.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "OTHER", string(other))
	assert.Equal(t, uint64(2), server.Stats().MsgsReceived)
}

func TestSocket_DisconnectDetachesBothEnds(t *testing.T) {
	server, client := connectedPair(t, nil)
	require.NoError(t, client.SendBytes([]byte("unread"), 0))
	require.NoError(t, client.Disconnect("inproc://pair"))
	assert.Equal(t, 0, client.Stats().Pipes)

	// There is no linger: frames still queued in the pipe go with it.
	assert.False(t, server.HasIn())
	assert.Equal(t, 0, server.Stats().Pipes)
	assert.ErrorIs(t, client.Disconnect("inproc://pair"), api.ErrNotFound)
}

func TestSocket_UnsupportedType(t *testing.T) {
	_, err := New(Config{Type: api.Pub})
	assert.ErrorIs(t, err, api.ErrNotSupported)
}

func TestParseEndpoint(t *testing.T) {
	scheme, addr, err := ParseEndpoint("TCP://127.0.0.1:80")
	require.NoError(t, err)
	assert.Equal(t, "tcp", scheme)
	assert.Equal(t, "127.0.0.1:80", addr)

	for _, bad := range []string{"", "tcp://", "://x", "tcp:/x"} {
		_, _, err := ParseEndpoint(bad)
		assert.ErrorIs(t, err, api.ErrInvalidArgument, bad)
	}
}

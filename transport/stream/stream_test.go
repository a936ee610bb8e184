package stream_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/internal/logger"
	"github.com/momentics/hioload-mq/socket"
	"github.com/momentics/hioload-mq/transport/stream"
)

const content = "12345678ABCDEFGH12345678abcdefgh"

func newSocket(t *testing.T, typ api.SocketType) *socket.Socket {
	t.Helper()
	opts := socket.DefaultOptions()
	opts.SndTimeout = 3 * time.Second
	opts.RcvTimeout = 3 * time.Second
	opts.ReconnectIvl = 10 * time.Millisecond
	opts.ReconnectIvlMax = 50 * time.Millisecond
	s, err := socket.New(socket.Config{
		Type:       typ,
		Transports: []api.Transport{stream.NewTCP(), stream.NewIPC()},
		Options:    &opts,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func bounce(t *testing.T, server, client *socket.Socket) {
	t.Helper()
	require.NoError(t, client.SendMessage(0, []byte(content), []byte(content)))
	parts, err := server.RecvMessage(0)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.NoError(t, server.SendMessage(0, parts...))
	back, err := client.RecvMessage(0)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte(content), []byte(content)}, back)
}

func TestTCP_Bounce(t *testing.T) {
	server := newSocket(t, api.Dealer)
	client := newSocket(t, api.Dealer)
	require.NoError(t, server.Bind("tcp://127.0.0.1:*"))
	ep := server.LastEndpoint()
	require.True(t, strings.HasPrefix(ep, "tcp://127.0.0.1:"), ep)
	assert.NotEqual(t, "tcp://127.0.0.1:*", ep)

	require.NoError(t, client.Connect(ep))
	bounce(t, server, client)
	bounce(t, server, client)
}

func TestIPC_Bounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mq.sock")
	server := newSocket(t, api.Dealer)
	client := newSocket(t, api.Dealer)
	require.NoError(t, server.Bind("ipc://"+path))
	require.NoError(t, client.Connect("ipc://"+path))
	bounce(t, server, client)
}

func TestTCP_PushPullLargeFrame(t *testing.T) {
	pull := newSocket(t, api.Pull)
	push := newSocket(t, api.Push)
	require.NoError(t, pull.Bind("tcp://127.0.0.1:*"))
	require.NoError(t, push.Connect(pull.LastEndpoint()))

	big := []byte(strings.Repeat("x", 300))
	require.NoError(t, push.SendBytes(big, 0))
	got, err := pull.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, big, got)
}

func TestTCP_ConnectBeforeBind(t *testing.T) {
	probe := newSocket(t, api.Dealer)
	require.NoError(t, probe.Bind("tcp://127.0.0.1:*"))
	ep := probe.LastEndpoint()
	require.NoError(t, probe.Unbind(ep))

	client := newSocket(t, api.Dealer)
	require.NoError(t, client.Connect(ep))

	// The connecter keeps retrying until a listener shows up.
	time.Sleep(30 * time.Millisecond)
	server := newSocket(t, api.Dealer)
	require.NoError(t, server.Bind(ep))
	bounce(t, server, client)
}

func TestTCP_Reconnect(t *testing.T) {
	server := newSocket(t, api.Dealer)
	client := newSocket(t, api.Dealer)
	require.NoError(t, server.Bind("tcp://127.0.0.1:*"))
	ep := server.LastEndpoint()
	require.NoError(t, client.Connect(ep))
	bounce(t, server, client)

	require.NoError(t, server.Close())
	require.Eventually(t, func() bool { return !client.HasOut() }, 2*time.Second, 5*time.Millisecond)

	again := newSocket(t, api.Dealer)
	require.NoError(t, again.Bind(ep))
	bounce(t, again, client)
}

func TestTCP_BindErrors(t *testing.T) {
	s := newSocket(t, api.Dealer)

	assert.ErrorIs(t, s.Bind("tcp://127.0.0.1:0"), api.ErrInvalidArgument)
	assert.ErrorIs(t, s.Bind("tcp://127.0.0.1:99999"), api.ErrInvalidArgument)
	assert.ErrorIs(t, s.Bind("tcp://nosuchnic0:5555"), api.ErrNoDevice)

	require.NoError(t, s.Bind("tcp://127.0.0.1:*"))
	other := newSocket(t, api.Dealer)
	assert.ErrorIs(t, other.Bind(s.LastEndpoint()), api.ErrAddrInUse)

	assert.ErrorIs(t, s.Connect("tcp://:5555"), api.ErrInvalidArgument)
	assert.ErrorIs(t, s.Bind("ipc://"+strings.Repeat("p", 200)), api.ErrNameTooLong)
}

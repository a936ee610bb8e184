package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/internal/logger"
	"github.com/momentics/hioload-mq/socket"
)

func newSocket(t *testing.T, typ api.SocketType) *socket.Socket {
	t.Helper()
	opts := socket.DefaultOptions()
	opts.SndTimeout = 3 * time.Second
	opts.RcvTimeout = 3 * time.Second
	opts.ReconnectIvl = 10 * time.Millisecond
	s, err := socket.New(socket.Config{
		Type:       typ,
		Transports: []api.Transport{New(nil)},
		Options:    &opts,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWS_Bounce(t *testing.T) {
	server := newSocket(t, api.Dealer)
	client := newSocket(t, api.Dealer)
	require.NoError(t, server.Bind("ws://127.0.0.1:*/mq"))
	ep := server.LastEndpoint()
	require.True(t, strings.HasSuffix(ep, "/mq"), ep)
	require.NoError(t, client.Connect(ep))

	const content = "12345678ABCDEFGH12345678abcdefgh"
	require.NoError(t, client.SendMessage(0, []byte(content), []byte(content)))
	parts, err := server.RecvMessage(0)
	require.NoError(t, err)
	require.NoError(t, server.SendMessage(0, parts...))
	back, err := client.RecvMessage(0)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte(content), []byte(content)}, back)
}

func TestSplitPath(t *testing.T) {
	hp, p := splitPath("127.0.0.1:80/a/b")
	assert.Equal(t, "127.0.0.1:80", hp)
	assert.Equal(t, "/a/b", p)

	hp, p = splitPath("127.0.0.1:80")
	assert.Equal(t, "127.0.0.1:80", hp)
	assert.Equal(t, "/", p)
}

// rawPeer answers every connection with the given messages.
func rawPeer(t *testing.T, msgs ...[]byte) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, m := range msgs {
			_ = c.WriteMessage(websocket.BinaryMessage, m)
		}
	}))
	t.Cleanup(srv.Close)

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConn_ReadFrame(t *testing.T) {
	c := NewConn(rawPeer(t, []byte{0x01, 'h', 'i'}, []byte{0x00}, []byte{0x80, 'x'}), 0, nil)

	var m msg.Msg
	require.NoError(t, c.ReadFrame(&m))
	assert.Equal(t, "hi", string(m.Bytes()))
	assert.True(t, m.More())
	m.Close()

	require.NoError(t, c.ReadFrame(&m))
	assert.Equal(t, 0, m.Size())
	assert.False(t, m.More())

	assert.ErrorIs(t, c.ReadFrame(&m), api.ErrProtocol)
}

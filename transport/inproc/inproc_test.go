package inproc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/fake"
)

func TestInproc_ConnectAttachesBothEnds(t *testing.T) {
	reg := NewRegistry()
	tr := New(reg)
	ctx := context.Background()

	server := fake.NewHost(api.Dealer, "server")
	client := fake.NewHost(api.Dealer, "client")
	_, err := tr.Bind(ctx, "svc", server)
	require.NoError(t, err)
	assert.Equal(t, []string{"svc"}, reg.Names())

	_, err = tr.Connect(ctx, "svc", client)
	require.NoError(t, err)

	require.Len(t, client.Attached(), 1)
	require.Len(t, server.Attached(), 1)
	local, remote := client.Attached()[0], server.Attached()[0]

	m := msg.NewString("hi")
	require.True(t, local.Write(&m))
	var got msg.Msg
	require.True(t, remote.Read(&got))
	assert.Equal(t, "hi", string(got.Bytes()))
}

func TestInproc_Errors(t *testing.T) {
	tr := New(nil)
	ctx := context.Background()
	h := fake.NewHost(api.Dealer, "a")

	_, err := tr.Connect(ctx, "missing", h)
	assert.ErrorIs(t, err, api.ErrConnRefused)

	_, err = tr.Bind(ctx, "", h)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	closer, err := tr.Bind(ctx, "dup", h)
	require.NoError(t, err)
	_, err = tr.Bind(ctx, "dup", fake.NewHost(api.Dealer, "b"))
	assert.ErrorIs(t, err, api.ErrAddrInUse)

	_, err = tr.Connect(ctx, "dup", fake.NewHost(api.Pull, "c"))
	assert.ErrorIs(t, err, api.ErrProtocol)

	require.NoError(t, closer.Close())
	require.NoError(t, closer.Close())
	_, err = tr.Bind(ctx, "dup", fake.NewHost(api.Dealer, "b"))
	assert.NoError(t, err)
}

func TestInproc_HWMIsSumOfBothSides(t *testing.T) {
	tr := New(nil)
	ctx := context.Background()
	server := fake.NewHost(api.Dealer, "s")
	server.Cfg.RcvHWM = 1
	client := fake.NewHost(api.Dealer, "c")
	client.Cfg.SndHWM = 2

	_, err := tr.Bind(ctx, "hwm", server)
	require.NoError(t, err)
	_, err = tr.Connect(ctx, "hwm", client)
	require.NoError(t, err)
	local := client.Attached()[0]

	for i := 0; i < 3; i++ {
		m := msg.NewString("x")
		require.True(t, local.Write(&m), "message %d", i)
	}
	m := msg.NewString("x")
	assert.False(t, local.Write(&m))
}

func TestInproc_ZeroHWMIsUnlimited(t *testing.T) {
	assert.Equal(t, 0, sumHWM(0, 5))
	assert.Equal(t, 0, sumHWM(5, 0))
	assert.Equal(t, 7, sumHWM(3, 4))
}

func TestInproc_CloseConnectionTerminates(t *testing.T) {
	tr := New(nil)
	ctx := context.Background()
	server := fake.NewHost(api.Dealer, "s")
	client := fake.NewHost(api.Dealer, "c")
	_, err := tr.Bind(ctx, "term", server)
	require.NoError(t, err)
	conn, err := tr.Connect(ctx, "term", client)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	assert.Equal(t, []api.CommandKind{api.CmdAttach, api.CmdPipeTerm}, client.Cmds.Kinds())
	assert.Equal(t, []api.CommandKind{api.CmdAttach, api.CmdPipeTerm}, server.Cmds.Kinds())
	assert.Equal(t, api.PipeTerminated, client.Attached()[0].State())
}

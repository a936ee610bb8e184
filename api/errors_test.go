package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-mq/api"
)

func TestError_UnwrapsToSentinel(t *testing.T) {
	err := api.NewError(api.ErrCodeInvalidArgument, "missing port").WithContext("address", "localhost")
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
	assert.False(t, errors.Is(err, api.ErrNoDevice))
	assert.Contains(t, err.Error(), "localhost")

	wrapped := fmt.Errorf("bind: %w", err)
	assert.True(t, errors.Is(wrapped, api.ErrInvalidArgument))
}

func TestIsAgain(t *testing.T) {
	assert.True(t, api.IsAgain(api.ErrAgain))
	assert.True(t, api.IsAgain(fmt.Errorf("send: %w", api.ErrAgain)))
	assert.False(t, api.IsAgain(api.ErrClosed))
	assert.False(t, api.IsAgain(nil))
}

func TestParseSocketType(t *testing.T) {
	for _, typ := range []api.SocketType{api.Dealer, api.Push, api.Pull, api.Sub} {
		got, err := api.ParseSocketType(typ.String())
		assert.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := api.ParseSocketType("ROUTERX")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestPipeStateString(t *testing.T) {
	assert.Equal(t, "active", api.PipeActive.String())
	assert.Equal(t, "terminated", api.PipeTerminated.String())
	assert.Equal(t, "pipe_term", api.CmdPipeTerm.String())
}

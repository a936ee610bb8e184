package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/internal/logger"
)

func TestNextInterval(t *testing.T) {
	base := 100 * time.Millisecond
	cases := []struct {
		name      string
		cur, ceil time.Duration
		want      time.Duration
	}{
		{"no ceiling keeps base", 400 * time.Millisecond, 0, base},
		{"ceiling below base keeps base", base, 50 * time.Millisecond, base},
		{"doubles", base, time.Second, 200 * time.Millisecond},
		{"capped", 800 * time.Millisecond, time.Second, time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextInterval(tc.cur, base, tc.ceil))
		})
	}
}

func TestReconnector_RetriesUntilClosed(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context) (*Engine, error) {
		dials.Add(1)
		return nil, errors.New("refused")
	}
	r := Reconnect(dial, time.Millisecond, 4*time.Millisecond, logger.Discard())
	require.Eventually(t, func() bool { return dials.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, r.Close())
	select {
	case <-r.Done():
	default:
		t.Fatal("reconnector still running")
	}
}

func TestReconnector_ZeroIntervalDialsOnce(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context) (*Engine, error) {
		dials.Add(1)
		return nil, errors.New("refused")
	}
	r := Reconnect(dial, 0, 0, logger.Discard())
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("reconnector did not give up")
	}
	assert.Equal(t, int32(1), dials.Load())
	require.NoError(t, r.Close())
}

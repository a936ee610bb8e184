package control

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/internal/logger"
)

func TestConfigStoreTypedGetters(t *testing.T) {
	cs := NewConfigStore()
	calls := 0
	cs.OnReload(func() { calls++ })
	cs.SetConfig(map[string]any{
		KeySndHWM:       500,
		KeyRcvHWM:       "bogus",
		KeySndTimeout:   "250ms",
		KeyRcvTimeout:   100,
		KeyIPv4Only:     true,
		KeyReconnectIvl: time.Second,
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 500, cs.Int(KeySndHWM, 1))
	assert.Equal(t, 7, cs.Int(KeyRcvHWM, 7))
	assert.Equal(t, 250*time.Millisecond, cs.Duration(KeySndTimeout, 0))
	assert.Equal(t, 100*time.Millisecond, cs.Duration(KeyRcvTimeout, 0))
	assert.Equal(t, time.Second, cs.Duration(KeyReconnectIvl, 0))
	assert.Equal(t, time.Minute, cs.Duration(KeyReconnectIvlMax, time.Minute))
	assert.True(t, cs.Bool(KeyIPv4Only, false))
	assert.Len(t, cs.GetSnapshot(), 6)
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("x", func() any { return 1 })
	assert.Contains(t, dp.Names(), "platform.cpus")

	state := dp.DumpState()
	assert.Equal(t, 1, state["x"])
	dp.UnregisterProbe("x")
	assert.NotContains(t, dp.DumpState(), "x")
}

func TestMetricsRegistryAdd(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Add("socket.sent", 2)
	mr.Add("socket.sent", 3)
	mr.Set("label", "text")
	snap := mr.GetSnapshot()
	assert.Equal(t, int64(5), snap["socket.sent"])
	assert.False(t, mr.Updated().IsZero())
	mr.Delete("label")
	assert.NotContains(t, mr.GetSnapshot(), "label")

	mr.SetAll(map[string]any{"pipes.attached": 4, "socket.sent": int64(1)})
	snap = mr.GetSnapshot()
	assert.Equal(t, 4, snap["pipes.attached"])
	assert.Equal(t, int64(1), snap["socket.sent"])
}

func TestExporterServesNumericMetrics(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Set("sockets.open", 3)
	mr.Set("socket.1.pipes", uint64(2))
	mr.Set("name", "ignored")
	e := NewExporter("hioload_mq", mr)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "hioload_mq_sockets_open 3")
	assert.Contains(t, string(body), "hioload_mq_socket_1_pipes 2")
	assert.NotContains(t, string(body), "hioload_mq_name")
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "socket_rx_bytes", MetricName("socket.rx-bytes"))
	assert.Equal(t, "_9lives", MetricName("9lives"))
}

func TestWatchFileReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchFile(ctx, path, 10*time.Millisecond, logger.Discard(), func() error {
			reloads.Add(1)
			return nil
		})
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("a: 22\n"), 0o600))
	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func watchReloads(t *testing.T, path string, interval time.Duration) *atomic.Int32 {
	t.Helper()
	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchFile(ctx, path, interval, logger.Discard(), func() error {
			reloads.Add(1)
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Let the watcher register before the file changes.
	time.Sleep(50 * time.Millisecond)
	return &reloads
}

func TestWatchFileReactsToNotification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	// The recheck interval is far beyond the test: only a notification
	// can trigger the reload.
	reloads := watchReloads(t, path, time.Hour)
	require.NoError(t, os.WriteFile(path, []byte("a: 22\n"), 0o600))
	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchFileFollowsRenameReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))
	reloads := watchReloads(t, path, time.Hour)

	// Write a sibling file first: it must not count as a change.
	tmp := filepath.Join(dir, "cfg.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("a: 333\n"), 0o600))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, reloads.Load())

	require.NoError(t, os.Rename(tmp, path))
	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

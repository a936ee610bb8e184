package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	cfg := ParseConfig("socket=debug, transport=warn,error,bogus=loud", "JSON")
	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelFor("socket"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelFor("transport"))
	assert.Equal(t, slog.LevelError, cfg.LevelFor("engine"))
	_, ok := cfg.SubsystemLevels["bogus"]
	assert.False(t, ok)
	assert.Equal(t, FormatJSON, cfg.Format)

	def := ParseConfig("", "")
	assert.Equal(t, slog.LevelInfo, def.DefaultLevel)
	assert.Equal(t, FormatText, def.Format)
}

func TestLoggerSubsystemAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	l := Logger("logger-test")
	assert.Same(t, l, Logger("logger-test"))

	SetLevel("logger-test", slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.True(t, strings.Contains(out, "subsystem=logger-test") || strings.Contains(out, `"subsystem":"logger-test"`))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.Error("nothing")
}

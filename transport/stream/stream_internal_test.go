package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEphemeralPort(t *testing.T) {
	addr, ok := ephemeralPort("127.0.0.1:*")
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:1", addr)

	addr, ok = ephemeralPort("127.0.0.1:80")
	assert.False(t, ok)
	assert.Equal(t, "127.0.0.1:80", addr)
}

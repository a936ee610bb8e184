// File: core/routing/fq_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/fake"
)

func recvString(t *testing.T, fq *FairQueue) (string, bool) {
	t.Helper()
	var m msg.Msg
	require.NoError(t, fq.Recv(&m))
	return string(m.Bytes()), m.More()
}

func TestFairQueueFairness(t *testing.T) {
	fq := NewFairQueue()
	pipes := []*fake.Pipe{fake.NewPipe("a"), fake.NewPipe("b"), fake.NewPipe("c")}
	for _, p := range pipes {
		p.PushMessage(p.Name + "1")
		p.PushMessage(p.Name + "2")
		require.NoError(t, fq.Attach(p))
	}

	var got []string
	for i := 0; i < 6; i++ {
		s, _ := recvString(t, fq)
		got = append(got, s)
	}
	assert.Equal(t, []string{"a1", "b1", "c1", "a2", "b2", "c2"}, got)

	var m msg.Msg
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain)
}

func TestFairQueueRoundTripScenario(t *testing.T) {
	fq := NewFairQueue()
	a, b := fake.NewPipe("a"), fake.NewPipe("b")
	a.PushMessage("m1")
	require.NoError(t, fq.Attach(a))
	require.NoError(t, fq.Attach(b))

	s, _ := recvString(t, fq)
	assert.Equal(t, "m1", s)

	b.PushMessage("m2")
	fq.Activated(b)
	s, _ = recvString(t, fq)
	assert.Equal(t, "m2", s)

	var m msg.Msg
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain)
	assert.False(t, fq.HasIn())
}

func TestFairQueueInactiveUntilActivated(t *testing.T) {
	fq := NewFairQueue()
	a := fake.NewPipe("a")
	require.NoError(t, fq.Attach(a))

	var m msg.Msg
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain)
	a.PushMessage("late")
	// Data that arrives without an activation is not polled.
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain)
	assert.False(t, fq.HasIn())
	fq.Activated(a)
	assert.True(t, fq.HasIn())
	s, _ := recvString(t, fq)
	assert.Equal(t, "late", s)
}

func TestFairQueueMultiFrameStaysOnPipe(t *testing.T) {
	fq := NewFairQueue()
	a, b := fake.NewPipe("a"), fake.NewPipe("b")
	a.PushMessage("a1", "a2", "a3")
	b.PushMessage("b1")
	require.NoError(t, fq.Attach(a))
	require.NoError(t, fq.Attach(b))

	want := []struct {
		body string
		more bool
	}{{"a1", true}, {"a2", true}, {"a3", false}, {"b1", false}}
	for _, w := range want {
		s, more := recvString(t, fq)
		assert.Equal(t, w.body, s)
		assert.Equal(t, w.more, more)
	}
}

func TestFairQueueTerminatedMidMessage(t *testing.T) {
	fq := NewFairQueue()
	a, b := fake.NewPipe("a"), fake.NewPipe("b")
	a.PushMessage("a1", "a2", "a3")
	a.PushMessage("a-lost")
	b.PushMessage("b1")
	require.NoError(t, fq.Attach(a))
	require.NoError(t, fq.Attach(b))

	s, more := recvString(t, fq)
	require.Equal(t, "a1", s)
	require.True(t, more)

	assert.False(t, fq.Terminated(a))
	assert.True(t, fq.HasIn())
	s, more = recvString(t, fq)
	assert.Equal(t, "a2", s)
	assert.True(t, more)
	s, more = recvString(t, fq)
	assert.Equal(t, "a3", s)
	assert.False(t, more)

	s, more = recvString(t, fq)
	assert.Equal(t, "b1", s)
	assert.False(t, more)
	var m msg.Msg
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain)
	assert.True(t, fq.Terminated(b))
}

func TestFairQueueDrainingSurvivesNextTermination(t *testing.T) {
	fq := NewFairQueue()
	a, b := fake.NewPipe("a"), fake.NewPipe("b")
	a.PushMessage("a1", "a2")
	b.PushMessage("b1", "b2")
	require.NoError(t, fq.Attach(a))
	require.NoError(t, fq.Attach(b))

	s, _ := recvString(t, fq)
	require.Equal(t, "a1", s)
	assert.False(t, fq.Terminated(a))
	// b now sits at the cursor but a still owns the message.
	assert.False(t, fq.Terminated(b))

	s, more := recvString(t, fq)
	assert.Equal(t, "a2", s)
	assert.False(t, more)
	var m msg.Msg
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain)
	assert.Zero(t, fq.Len())
}

func TestFairQueueShortMessageNeverInterleaves(t *testing.T) {
	fq := NewFairQueue()
	a, b := fake.NewPipe("a"), fake.NewPipe("b")
	first := msg.NewString("a1")
	first.SetMore(true)
	a.Push(first)
	b.PushMessage("b1")
	require.NoError(t, fq.Attach(a))
	require.NoError(t, fq.Attach(b))

	s, more := recvString(t, fq)
	require.Equal(t, "a1", s)
	require.True(t, more)

	assert.False(t, fq.HasIn())
	var m msg.Msg
	assert.ErrorIs(t, fq.Recv(&m), api.ErrAgain, "the rest of a1's message is gone")
	s, more = recvString(t, fq)
	assert.Equal(t, "b1", s)
	assert.False(t, more)
}

func TestFairQueueCursorAfterRemoval(t *testing.T) {
	tests := []struct {
		name   string
		remove int
		want   []string
	}{
		{name: "before cursor", remove: 0, want: []string{"b", "c", "d"}},
		{name: "at cursor", remove: 1, want: []string{"c", "d", "a"}},
		{name: "after cursor", remove: 3, want: []string{"b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fq := NewFairQueue()
			names := []string{"a", "b", "c", "d"}
			pipes := make([]*fake.Pipe, len(names))
			for i, n := range names {
				pipes[i] = fake.NewPipe(n)
				pipes[i].PushMessage(n)
				require.NoError(t, fq.Attach(pipes[i]))
			}
			pipes[0].PushMessage("a")
			// Serve "a" once so the cursor rests on "b".
			s, _ := recvString(t, fq)
			require.Equal(t, "a", s)

			fq.Terminated(pipes[tt.remove])
			assert.GreaterOrEqual(t, fq.cursor, 0)
			assert.Less(t, fq.cursor, fq.Len())

			var got []string
			for range tt.want {
				s, _ := recvString(t, fq)
				got = append(got, s)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFairQueueCursorWrapsOnLastRemoval(t *testing.T) {
	fq := NewFairQueue()
	a, b := fake.NewPipe("a"), fake.NewPipe("b")
	a.PushMessage("a1")
	require.NoError(t, fq.Attach(a))
	require.NoError(t, fq.Attach(b))
	recvString(t, fq)
	require.Equal(t, 1, fq.cursor)

	fq.Terminated(b)
	assert.Equal(t, 0, fq.cursor)
}

func TestFairQueueAttachErrors(t *testing.T) {
	fq := NewFairQueue()
	a := fake.NewPipe("a")
	require.NoError(t, fq.Attach(a))
	assert.ErrorIs(t, fq.Attach(a), api.ErrAlreadyExists)
	assert.ErrorIs(t, fq.Attach(nil), api.ErrInvalidArgument)

	fq.Activated(fake.NewPipe("unknown"))
	assert.False(t, fq.Terminated(fake.NewPipe("unknown")))
	assert.Equal(t, 1, fq.Len())
}

func TestFairQueueSlotsExhausted(t *testing.T) {
	fq := NewFairQueue()
	fq.reg.limit = 2
	require.NoError(t, fq.Attach(fake.NewPipe("a")))
	b := fake.NewPipe("b")
	require.NoError(t, fq.Attach(b))
	assert.ErrorIs(t, fq.Attach(fake.NewPipe("c")), api.ErrResourceExhausted)

	fq.Terminated(b)
	assert.NoError(t, fq.Attach(fake.NewPipe("d")))
}

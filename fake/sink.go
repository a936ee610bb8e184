// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the pipe contracts.

package fake

import (
	"sync"

	"github.com/momentics/hioload-mq/api"
)

// Sink records every posted command in order.
type Sink struct {
	mu       sync.Mutex
	commands []api.Command

	// PostFunc, when set, is invoked after recording.
	PostFunc func(api.Command)
}

// NewSink creates an empty recording sink.
func NewSink() *Sink {
	return &Sink{}
}

// Post implements api.Sink.
func (s *Sink) Post(cmd api.Command) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	fn := s.PostFunc
	s.mu.Unlock()
	if fn != nil {
		fn(cmd)
	}
}

// Commands returns a copy of everything posted so far.
func (s *Sink) Commands() []api.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Kinds returns the kinds of posted commands, in order.
func (s *Sink) Kinds() []api.CommandKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.CommandKind, len(s.commands))
	for i, c := range s.commands {
		out[i] = c.Kind
	}
	return out
}

// Reset forgets all recorded commands.
func (s *Sink) Reset() {
	s.mu.Lock()
	s.commands = nil
	s.mu.Unlock()
}

// File: core/routing/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package routing

import (
	"github.com/google/uuid"

	"github.com/momentics/hioload-mq/api"
)

// MaxPipes bounds the slot table of one FairQueue or LoadBalancer.
const MaxPipes = 1 << 16

type entry struct {
	pipe   api.Pipe
	active bool
}

// registry is an ordered slot table keyed by pipe identity. Removal keeps the
// relative order of the remaining entries.
type registry struct {
	entries []entry
	index   map[uuid.UUID]int
	limit   int
}

func newRegistry() registry {
	return registry{index: make(map[uuid.UUID]int), limit: MaxPipes}
}

func (r *registry) add(p api.Pipe, active bool) error {
	if p == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "nil pipe")
	}
	if _, ok := r.index[p.ID()]; ok {
		return api.NewError(api.ErrCodeAlreadyExists, "pipe already attached").
			WithContext("pipe", p.ID().String())
	}
	if len(r.entries) >= r.limit {
		return api.NewError(api.ErrCodeResourceExhausted, "pipe slots exhausted").
			WithContext("limit", r.limit)
	}
	r.index[p.ID()] = len(r.entries)
	r.entries = append(r.entries, entry{pipe: p, active: active})
	return nil
}

// remove deletes p and returns the position it occupied.
func (r *registry) remove(p api.Pipe) (int, bool) {
	pos, ok := r.indexOf(p)
	if !ok {
		return -1, false
	}
	delete(r.index, p.ID())
	copy(r.entries[pos:], r.entries[pos+1:])
	r.entries[len(r.entries)-1] = entry{}
	r.entries = r.entries[:len(r.entries)-1]
	for i := pos; i < len(r.entries); i++ {
		r.index[r.entries[i].pipe.ID()] = i
	}
	return pos, true
}

func (r *registry) indexOf(p api.Pipe) (int, bool) {
	if p == nil {
		return -1, false
	}
	pos, ok := r.index[p.ID()]
	return pos, ok
}

func (r *registry) len() int { return len(r.entries) }

func (r *registry) at(i int) *entry { return &r.entries[i] }

// pipes returns registered pipes in rotation order.
func (r *registry) pipes() []api.Pipe {
	out := make([]api.Pipe, len(r.entries))
	for i := range r.entries {
		out[i] = r.entries[i].pipe
	}
	return out
}

// adjust keeps cursor on the same logical pipe after the entry at removed
// was deleted from a registry that now holds n entries.
func adjust(removed, cursor, n int) int {
	if removed < cursor {
		cursor--
	}
	if cursor >= n {
		cursor = 0
	}
	return cursor
}

// File: core/pattern/inbound.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pattern

import (
	"github.com/momentics/hioload-mq/core/msg"
	"github.com/momentics/hioload-mq/core/routing"
)

// inbound is a fair queue fronted by a one-frame prefetch slot.
type inbound struct {
	fq *routing.FairQueue

	// While filled, prefetch is the next frame recv must return.
	filled   bool
	prefetch msg.Msg
}

func newInbound() inbound {
	return inbound{fq: routing.NewFairQueue()}
}

func (in *inbound) recv(m *msg.Msg) error {
	if in.filled {
		in.prefetch.Move(m)
		in.filled = false
		return nil
	}
	return in.fq.Recv(m)
}

// hasIn moves a frame into the prefetch slot when the slot is empty. The
// frame is committed: the next recv returns it even if its pipe terminates.
func (in *inbound) hasIn() bool {
	if in.filled {
		return true
	}
	if err := in.fq.Recv(&in.prefetch); err != nil {
		return false
	}
	in.filled = true
	return true
}

func (in *inbound) close() {
	in.prefetch.Close()
	in.filled = false
}

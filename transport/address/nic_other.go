//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)
// +build !linux,!darwin,!freebsd,!netbsd,!openbsd,!dragonfly

// Author: momentics <momentics@gmail.com>

// Package address - platforms without usable interface names.

package address

import (
	"net/netip"

	"github.com/momentics/hioload-mq/api"
)

// lookupNIC always defers to literal address parsing.
func lookupNIC(string, bool) (netip.Addr, error) {
	return netip.Addr{}, api.ErrNoDevice
}

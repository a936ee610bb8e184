//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly
// +build linux darwin freebsd netbsd openbsd dragonfly

// Author: momentics <momentics@gmail.com>

// Package address - interface name lookup for platforms with sane NIC names.

package address

import (
	"net"
	"net/netip"

	"github.com/momentics/hioload-mq/api"
)

// lookupNIC returns the first IPv4 address of the interface or, unless
// ipv4only, its first IPv6 address when no IPv4 one comes first.
func lookupNIC(name string, ipv4only bool) (netip.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return netip.Addr{}, api.ErrNoDevice
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, api.ErrNoDevice
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipn.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.Is4() || (!ipv4only && addr.Is6()) {
			return addr, nil
		}
	}
	return netip.Addr{}, api.ErrNoDevice
}

// File: transport/address/sockaddr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package address

import (
	"net"
	"net/netip"
)

// Family of a resolved address.
type Family int

const (
	FamilyIPv4 Family = iota + 1
	FamilyIPv6
	FamilyLocal
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyLocal:
		return "local"
	default:
		return "unknown"
	}
}

// SockAddr is a resolved endpoint address.
type SockAddr struct {
	family Family
	ap     netip.AddrPort
	path   string
}

func inetAddr(addr netip.Addr, port uint16) SockAddr {
	f := FamilyIPv6
	if addr.Is4() {
		f = FamilyIPv4
	}
	return SockAddr{family: f, ap: netip.AddrPortFrom(addr, port)}
}

// Family returns the address family.
func (s SockAddr) Family() Family { return s.family }

// AddrPort returns the IP address and port. Zero for local addresses.
func (s SockAddr) AddrPort() netip.AddrPort { return s.ap }

// Path returns the filesystem path of a local address.
func (s SockAddr) Path() string { return s.path }

// Network returns the net package network name.
func (s SockAddr) Network() string {
	switch s.family {
	case FamilyIPv4:
		return "tcp4"
	case FamilyLocal:
		return "unix"
	default:
		return "tcp"
	}
}

// String returns an address suitable for net.Listen and net.Dial.
func (s SockAddr) String() string {
	if s.family == FamilyLocal {
		return s.path
	}
	return s.ap.String()
}

// TCPAddr converts an inet address.
func (s SockAddr) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(s.ap)
}

// UnixAddr converts a local address.
func (s SockAddr) UnixAddr() *net.UnixAddr {
	return &net.UnixAddr{Name: s.path, Net: "unix"}
}

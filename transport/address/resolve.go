// File: transport/address/resolve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package address

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/momentics/hioload-mq/api"
)

// NICLookup returns the first address of interface name. It reports
// api.ErrNoDevice when no such interface exists.
type NICLookup func(name string, ipv4only bool) (netip.Addr, error)

// HostLookup resolves a hostname through DNS.
type HostLookup func(ctx context.Context, network, host string) ([]netip.Addr, error)

// Resolver bundles the platform strategies.
type Resolver struct {
	NIC  NICLookup
	Host HostLookup
}

// Default uses the build-selected NIC strategy and the system DNS resolver.
var Default = &Resolver{
	NIC:  lookupNIC,
	Host: net.DefaultResolver.LookupNetIP,
}

// ResolveInterface resolves "<nic-or-literal>:<port>" with Default.
func ResolveInterface(s string, ipv4only bool) (SockAddr, error) {
	return Default.ResolveInterface(s, ipv4only)
}

// ResolveHostname resolves "<host>:<port>" with Default.
func ResolveHostname(ctx context.Context, s string, ipv4only bool) (SockAddr, error) {
	return Default.ResolveHostname(ctx, s, ipv4only)
}

// ResolveInterface resolves an address to bind to. It never consults DNS.
func (r *Resolver) ResolveInterface(s string, ipv4only bool) (SockAddr, error) {
	host, port, err := splitHostPort(s)
	if err != nil {
		return SockAddr{}, err
	}

	if host == "*" {
		if ipv4only {
			return inetAddr(netip.IPv4Unspecified(), port), nil
		}
		return inetAddr(netip.IPv6Unspecified(), port), nil
	}

	if r.NIC != nil {
		addr, err := r.NIC(host, ipv4only)
		if err == nil {
			if addr, ok := familyFit(addr, ipv4only); ok {
				return inetAddr(addr, port), nil
			}
			return SockAddr{}, api.NewError(api.ErrCodeNoDevice, "interface address outside ipv4 family").
				WithContext("interface", host)
		}
		if !errors.Is(err, api.ErrNoDevice) {
			return SockAddr{}, err
		}
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return SockAddr{}, api.NewError(api.ErrCodeNoDevice, "unknown interface or address").
			WithContext("interface", host)
	}
	addr, ok := familyFit(addr, ipv4only)
	if !ok {
		return SockAddr{}, api.NewError(api.ErrCodeNoDevice, "address outside ipv4 family").
			WithContext("interface", host)
	}
	return inetAddr(addr, port), nil
}

// ResolveHostname resolves an address to connect to. Numeric hosts skip DNS.
func (r *Resolver) ResolveHostname(ctx context.Context, s string, ipv4only bool) (SockAddr, error) {
	host, port, err := splitHostPort(s)
	if err != nil {
		return SockAddr{}, err
	}
	if host == "" {
		return SockAddr{}, api.NewError(api.ErrCodeInvalidArgument, "empty hostname")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if addr, ok := familyFit(addr, ipv4only); ok {
			return inetAddr(addr, port), nil
		}
		return SockAddr{}, api.NewError(api.ErrCodeInvalidArgument, "address outside ipv4 family").
			WithContext("host", host)
	}

	network := "ip"
	if ipv4only {
		network = "ip4"
	}
	addrs, err := r.Host(ctx, network, host)
	if err != nil || len(addrs) == 0 {
		e := api.NewError(api.ErrCodeInvalidArgument, "cannot resolve hostname").WithContext("host", host)
		if err != nil {
			e = e.WithContext("cause", err.Error())
		}
		return SockAddr{}, e
	}
	addr, ok := pickAddr(addrs, ipv4only)
	if !ok {
		return SockAddr{}, api.NewError(api.ErrCodeInvalidArgument, "no usable address").
			WithContext("host", host)
	}
	return inetAddr(addr, port), nil
}

// splitHostPort splits on the last ':' and validates the port.
func splitHostPort(s string) (string, uint16, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", 0, api.NewError(api.ErrCodeInvalidArgument, "missing port separator").
			WithContext("address", s)
	}
	host, service := s[:i], s[i+1:]
	port, err := strconv.ParseUint(service, 10, 16)
	if err != nil || port == 0 {
		return "", 0, api.NewError(api.ErrCodeInvalidArgument, "invalid port").
			WithContext("address", s)
	}
	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return host, uint16(port), nil
}

// familyFit converts addr to the requested family: IPv4 literals are mapped
// into IPv6 unless ipv4only, and IPv6 literals are refused when ipv4only.
func familyFit(addr netip.Addr, ipv4only bool) (netip.Addr, bool) {
	if ipv4only {
		addr = addr.Unmap()
		return addr, addr.Is4()
	}
	if addr.Is4() {
		return netip.AddrFrom16(addr.As16()), true
	}
	return addr, true
}

// pickAddr prefers native IPv6 results in dual-stack mode and falls back to
// mapped IPv4.
func pickAddr(addrs []netip.Addr, ipv4only bool) (netip.Addr, bool) {
	if !ipv4only {
		for _, a := range addrs {
			if a.Is6() && !a.Is4In6() {
				return a, true
			}
		}
	}
	for _, a := range addrs {
		if a, ok := familyFit(a, ipv4only); ok {
			return a, true
		}
	}
	return netip.Addr{}, false
}


//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>

// Package address - Linux binary sockaddr layouts.

package address

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mq/api"
)

// Len returns the binary sockaddr length for this address.
func (s SockAddr) Len() int {
	switch s.family {
	case FamilyIPv4:
		return unix.SizeofSockaddrInet4
	case FamilyIPv6:
		return unix.SizeofSockaddrInet6
	case FamilyLocal:
		return unix.SizeofSockaddrUnix
	}
	return 0
}

// Raw returns the kernel sockaddr encoding of the address.
func (s SockAddr) Raw() ([]byte, error) {
	switch s.family {
	case FamilyIPv4:
		var sa unix.RawSockaddrInet4
		sa.Family = unix.AF_INET
		putPort(&sa.Port, s.ap.Port())
		sa.Addr = s.ap.Addr().As4()
		return bytesOf(unsafe.Pointer(&sa), unix.SizeofSockaddrInet4), nil
	case FamilyIPv6:
		var sa unix.RawSockaddrInet6
		sa.Family = unix.AF_INET6
		putPort(&sa.Port, s.ap.Port())
		sa.Addr = s.ap.Addr().As16()
		return bytesOf(unsafe.Pointer(&sa), unix.SizeofSockaddrInet6), nil
	case FamilyLocal:
		var sa unix.RawSockaddrUnix
		sa.Family = unix.AF_UNIX
		for i := 0; i < len(s.path); i++ {
			sa.Path[i] = int8(s.path[i])
		}
		return bytesOf(unsafe.Pointer(&sa), unix.SizeofSockaddrUnix), nil
	}
	return nil, api.NewError(api.ErrCodeInvalidArgument, "empty address")
}

// putPort stores port in network byte order.
func putPort(dst *uint16, port uint16) {
	p := (*[2]byte)(unsafe.Pointer(dst))
	p[0] = byte(port >> 8)
	p[1] = byte(port)
}

func bytesOf(p unsafe.Pointer, n int) []byte {
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(p), n))
	return out
}

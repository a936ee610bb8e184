//go:build unix

// Author: momentics <momentics@gmail.com>

// Package address - TCP socket tuning on unix.

package address

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// TuneTCP sets TCP_NODELAY. Non-TCP connections are left alone.
func TuneTCP(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	var sc syscall.Conn = tc
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}); err != nil {
		return err
	}
	return serr
}

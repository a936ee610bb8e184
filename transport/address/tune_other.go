//go:build !unix

// Author: momentics <momentics@gmail.com>

package address

import "net"

// TuneTCP disables Nagle's algorithm.
func TuneTCP(conn net.Conn) error {
	if tc, ok := conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(true)
	}
	return nil
}

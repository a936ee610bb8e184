//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>

package address

import "github.com/momentics/hioload-mq/api"

// Len returns 0: binary layouts are only provided on Linux.
func (s SockAddr) Len() int { return 0 }

// Raw is not provided on this platform.
func (s SockAddr) Raw() ([]byte, error) {
	return nil, api.NewError(api.ErrCodeNotSupported, "raw sockaddr not supported")
}

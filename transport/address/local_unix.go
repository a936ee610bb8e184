//go:build unix

// Author: momentics <momentics@gmail.com>

// Package address - unix domain paths.

package address

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mq/api"
)

// sunPathLen is the capacity of sockaddr_un.sun_path.
var sunPathLen = len(unix.RawSockaddrUnix{}.Path)

// ResolveLocalPath converts a filesystem path into a local address.
func ResolveLocalPath(path string) (SockAddr, error) {
	if path == "" {
		return SockAddr{}, api.NewError(api.ErrCodeInvalidArgument, "empty path")
	}
	if len(path) >= sunPathLen {
		return SockAddr{}, api.NewError(api.ErrCodeNameTooLong, "path exceeds sun_path").
			WithContext("path", path).
			WithContext("max", sunPathLen-1)
	}
	return SockAddr{family: FamilyLocal, path: path}, nil
}

//go:build !unix

// Author: momentics <momentics@gmail.com>

package address

import "github.com/momentics/hioload-mq/api"

// ResolveLocalPath is unavailable on this platform.
func ResolveLocalPath(path string) (SockAddr, error) {
	return SockAddr{}, api.NewError(api.ErrCodeNotSupported, "local addresses not supported").
		WithContext("path", path)
}

// File: socket/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"strings"

	"github.com/momentics/hioload-mq/api"
)

// ParseEndpoint splits "scheme://address". The scheme is lower-cased.
func ParseEndpoint(endpoint string) (scheme, addr string, err error) {
	scheme, addr, ok := strings.Cut(endpoint, "://")
	if !ok || scheme == "" || addr == "" {
		return "", "", api.NewError(api.ErrCodeInvalidArgument, "malformed endpoint").
			WithContext("endpoint", endpoint)
	}
	return strings.ToLower(scheme), addr, nil
}

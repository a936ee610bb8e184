// File: socket/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"time"

	"github.com/momentics/hioload-mq/api"
)

// MaxIdentityLen bounds OptIdentity.
const MaxIdentityLen = 255

// Options are the tunables of a socket. Timeouts: negative waits forever,
// zero never waits.
type Options struct {
	SndHWM          int
	RcvHWM          int
	SndTimeout      time.Duration
	RcvTimeout      time.Duration
	Identity        []byte
	IPv4Only        bool
	ReconnectIvl    time.Duration
	ReconnectIvlMax time.Duration
	MaxMsgSize      int64
}

// DefaultOptions mirrors the classic socket defaults.
func DefaultOptions() Options {
	return Options{
		SndHWM:          1000,
		RcvHWM:          1000,
		SndTimeout:      -1,
		RcvTimeout:      -1,
		IPv4Only:        true,
		ReconnectIvl:    100 * time.Millisecond,
		ReconnectIvlMax: 0,
		MaxMsgSize:      0,
	}
}

func (o *Options) pipeConfig() api.PipeConfig {
	return api.PipeConfig{
		SndHWM:          o.SndHWM,
		RcvHWM:          o.RcvHWM,
		IPv4Only:        o.IPv4Only,
		ReconnectIvl:    o.ReconnectIvl,
		ReconnectIvlMax: o.ReconnectIvlMax,
		MaxMsgSize:      o.MaxMsgSize,
	}
}

func invalidOption(opt api.Option, v any) error {
	return api.NewError(api.ErrCodeInvalidArgument, "invalid option value").
		WithContext("option", opt.String()).
		WithContext("value", v)
}

// set applies one option. Integers are accepted for durations as
// milliseconds.
func (o *Options) set(opt api.Option, v any) error {
	switch opt {
	case api.OptSndHWM, api.OptRcvHWM:
		n, ok := v.(int)
		if !ok || n < 0 {
			return invalidOption(opt, v)
		}
		if opt == api.OptSndHWM {
			o.SndHWM = n
		} else {
			o.RcvHWM = n
		}
	case api.OptSndTimeout, api.OptRcvTimeout, api.OptReconnectIvl, api.OptReconnectIvlMax:
		d, ok := asDuration(v)
		if !ok {
			return invalidOption(opt, v)
		}
		switch opt {
		case api.OptSndTimeout:
			o.SndTimeout = d
		case api.OptRcvTimeout:
			o.RcvTimeout = d
		case api.OptReconnectIvl:
			if d < 0 {
				return invalidOption(opt, v)
			}
			o.ReconnectIvl = d
		default:
			if d < 0 {
				return invalidOption(opt, v)
			}
			o.ReconnectIvlMax = d
		}
	case api.OptIdentity:
		b, ok := v.([]byte)
		if !ok {
			if s, isStr := v.(string); isStr {
				b, ok = []byte(s), true
			}
		}
		if !ok || len(b) == 0 || len(b) > MaxIdentityLen {
			return invalidOption(opt, v)
		}
		o.Identity = append([]byte(nil), b...)
	case api.OptIPv4Only:
		b, ok := v.(bool)
		if !ok {
			return invalidOption(opt, v)
		}
		o.IPv4Only = b
	case api.OptMaxMsgSize:
		switch n := v.(type) {
		case int:
			o.MaxMsgSize = int64(n)
		case int64:
			o.MaxMsgSize = n
		default:
			return invalidOption(opt, v)
		}
		if o.MaxMsgSize < 0 {
			o.MaxMsgSize = 0
		}
	case api.OptRcvMore, api.OptType:
		return api.NewError(api.ErrCodeInvalidArgument, "read-only option").
			WithContext("option", opt.String())
	default:
		return api.NewError(api.ErrCodeInvalidArgument, "unknown option").
			WithContext("option", int(opt))
	}
	return nil
}

func (o *Options) get(opt api.Option) (any, error) {
	switch opt {
	case api.OptSndHWM:
		return o.SndHWM, nil
	case api.OptRcvHWM:
		return o.RcvHWM, nil
	case api.OptSndTimeout:
		return o.SndTimeout, nil
	case api.OptRcvTimeout:
		return o.RcvTimeout, nil
	case api.OptIdentity:
		return append([]byte(nil), o.Identity...), nil
	case api.OptIPv4Only:
		return o.IPv4Only, nil
	case api.OptReconnectIvl:
		return o.ReconnectIvl, nil
	case api.OptReconnectIvlMax:
		return o.ReconnectIvlMax, nil
	case api.OptMaxMsgSize:
		return o.MaxMsgSize, nil
	}
	return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown option").
		WithContext("option", int(opt))
}

func asDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case int:
		if d < 0 {
			return -1, true
		}
		return time.Duration(d) * time.Millisecond, true
	}
	return 0, false
}

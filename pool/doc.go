// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for hioload-mq.
// Size-classed, lock-free byte slabs for decoded frame payloads. Pooled
// buffers travel inside msg.Msg and return to their slab on Close.
package pool

// File: core/routing/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package routing multiplexes a dynamic set of pipes into a single inbound
// stream (FairQueue) and a single outbound stream (LoadBalancer).
//
// Both structures keep an insertion-ordered registry and a rotation cursor and
// serve pipes in strict round robin starting at the cursor. Neither is safe
// for concurrent use: they belong to the goroutine that owns the socket.
package routing

package pool

import "sync"

var (
	defaultOnce sync.Once
	defaultPool *BytePool
)

// Default returns a process-wide BytePool so all transports share the same
// slabs instead of fragmenting allocations.
func Default() *BytePool {
	defaultOnce.Do(func() {
		defaultPool = NewBytePool(DefaultSlabCapacity)
	})
	return defaultPool
}

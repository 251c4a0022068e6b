package indexer

import "sync/atomic"

// runLock is a non-blocking, acquire-once lock guarding the foreground loop.
type runLock struct {
	state atomic.Int32 // 0 = free, 1 = taken
}

// TryAcquire attempts to take the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *runLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

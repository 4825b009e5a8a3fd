package server

import "sync/atomic"

// ConnectionLimiter caps the number of concurrent messaging clients.
// Acquisition is lock-free; the accept loop calls TryAcquire before
// handing a socket to a session goroutine and Release when it exits.
type ConnectionLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConnectionLimiter creates a limiter admitting at most limit clients.
func NewConnectionLimiter(limit int) *ConnectionLimiter {
	return &ConnectionLimiter{limit: int64(limit)}
}

// TryAcquire claims a client slot. It returns false when the server is at
// capacity, in which case the caller rejects the connection.
func (l *ConnectionLimiter) TryAcquire() bool {
	for {
		current := l.current.Load()
		if current >= l.limit {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release returns a client slot.
func (l *ConnectionLimiter) Release() {
	l.current.Add(-1)
}

// Current returns the number of admitted clients.
func (l *ConnectionLimiter) Current() int64 {
	return l.current.Load()
}

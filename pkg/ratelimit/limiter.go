// Package ratelimit provides pacing between successive network operations.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter blocks until the next operation is allowed to proceed
type Limiter interface {
	Wait()
}

// FixedDelay enforces a minimum interval between successive calls to Wait.
// The first call returns immediately.
type FixedDelay struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewFixedDelay creates a limiter with the given minimum interval
func NewFixedDelay(interval time.Duration) *FixedDelay {
	return &FixedDelay{interval: interval}
}

// Wait blocks until at least the configured interval has passed since the
// previous call. Calls are serialized; concurrent callers queue up.
func (f *FixedDelay) Wait() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.last.IsZero() {
		if elapsed := time.Since(f.last); elapsed < f.interval {
			time.Sleep(f.interval - elapsed)
		}
	}
	f.last = time.Now()
}

// None is a limiter that never blocks, useful in tests
var None Limiter = noopLimiter{}

type noopLimiter struct{}

func (noopLimiter) Wait() {}

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedDelayFirstCallImmediate(t *testing.T) {
	limiter := NewFixedDelay(500 * time.Millisecond)

	start := time.Now()
	limiter.Wait()
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFixedDelaySpacesCalls(t *testing.T) {
	limiter := NewFixedDelay(100 * time.Millisecond)

	limiter.Wait()
	start := time.Now()
	limiter.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestFixedDelayNoWaitAfterInterval(t *testing.T) {
	limiter := NewFixedDelay(50 * time.Millisecond)

	limiter.Wait()
	time.Sleep(60 * time.Millisecond)

	start := time.Now()
	limiter.Wait()
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestNoneNeverBlocks(t *testing.T) {
	start := time.Now()
	for i := 0; i < 1000; i++ {
		None.Wait()
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

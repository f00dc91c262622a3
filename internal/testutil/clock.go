package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a ManualClock starts at.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a test clock with two faces: Next issues a monotonic
// version sequence, Now returns a wall time that only moves on Advance.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	seq int64
	now time.Time
}

// NewManualClock creates a clock at sequence 0 and time Epoch.
//
// The first call to Next() returns 1.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// Next increments and returns the next sequence number.
func (c *ManualClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *ManualClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now returns the clock's wall time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the wall time forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset returns the clock to sequence 0 and time Epoch.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
	c.now = Epoch
}

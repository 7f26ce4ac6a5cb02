package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe stand-in for time.Now.
//
// Every call to Now advances the clock by one millisecond, so stamped
// rows get distinct, reproducible modified values.
type DeterministicClock struct {
	mu    sync.Mutex
	ticks int64
}

// NewDeterministicClock creates a clock whose first Now is Epoch+1ms.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now advances the clock and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * time.Millisecond)
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

package service

import (
	"sync"
	"time"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time { return f() }

// LedgerClock hands out ledger timestamps that never go backwards,
// even if the wall clock is stepped back.
type LedgerClock struct {
	mu   sync.Mutex
	base Clock
	last time.Time
}

// NewLedgerClock wraps base; a nil base uses the system clock
func NewLedgerClock(base Clock) *LedgerClock {
	if base == nil {
		base = ClockFunc(time.Now)
	}
	return &LedgerClock{base: base}
}

// Now returns the later of the wall clock and the previous timestamp
func (c *LedgerClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.base.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

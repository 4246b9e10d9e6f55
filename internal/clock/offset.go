package clock

import (
	"sync"
	"time"
)

// OffsetClock is a software clock that tracks the host wall clock plus an
// adjustable offset. SetTime changes the offset, never the host clock, so
// it works without privileges.
type OffsetClock struct {
	fields
	mu     sync.RWMutex
	offset time.Duration
	host   func() time.Time
}

// NewOffsetClock creates an OffsetClock reading from host. If host is nil,
// time.Now is used.
func NewOffsetClock(host func() time.Time) *OffsetClock {
	if host == nil {
		host = time.Now
	}
	c := &OffsetClock{host: host}
	c.fields = fields{now: c.Now}
	return c
}

// Now returns the host time shifted by the current offset, in UTC.
func (c *OffsetClock) Now() time.Time {
	c.mu.RLock()
	off := c.offset
	c.mu.RUnlock()
	return c.host().Add(off).UTC()
}

// SetTime adjusts the offset so that Now reports epochSeconds.
func (c *OffsetClock) SetTime(epochSeconds int64) {
	target := time.Unix(epochSeconds, 0)
	c.mu.Lock()
	c.offset = target.Sub(c.host())
	c.mu.Unlock()
}

// Offset returns the current correction applied to the host clock.
func (c *OffsetClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

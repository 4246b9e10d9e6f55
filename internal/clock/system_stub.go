//go:build !linux

package clock

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// SystemClock is not available on non-Linux platforms.
type SystemClock struct {
	fields
}

// NewSystemClock returns an error on non-Linux platforms.
func NewSystemClock(log zerolog.Logger) (*SystemClock, error) {
	return nil, errors.New("clock: system clock not supported on this platform (requires Linux)")
}

// Now returns the host time in UTC.
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// SetTime is not implemented on non-Linux platforms.
func (c *SystemClock) SetTime(epochSeconds int64) {}

//go:build linux

package clock

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// SystemClock reads and writes CLOCK_REALTIME. Setting the time requires
// CAP_SYS_TIME.
type SystemClock struct {
	fields
	log zerolog.Logger
}

// NewSystemClock returns a clock backed by the host real-time clock.
func NewSystemClock(log zerolog.Logger) (*SystemClock, error) {
	c := &SystemClock{log: log}
	c.fields = fields{now: c.Now}
	return c, nil
}

// Now returns the host time in UTC.
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// SetTime sets CLOCK_REALTIME. A failure is logged; the clock keeps its
// previous value.
func (c *SystemClock) SetTime(epochSeconds int64) {
	if err := c.set(epochSeconds); err != nil {
		c.log.Error().Err(err).Int64("epoch", epochSeconds).Msg("set system clock")
	}
}

func (c *SystemClock) set(epochSeconds int64) error {
	ts := unix.NsecToTimespec(time.Unix(epochSeconds, 0).UnixNano())
	if err := unix.ClockSettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return fmt.Errorf("clock_settime: %w", err)
	}
	return nil
}

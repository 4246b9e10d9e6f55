// Package clock provides the wall-clock source that the schedulers read
// calendar fields from and that time sync writes to.
// The real implementations wrap the host clock; Fake is for tests.
package clock

import "time"

// Source is a real-time clock readable by calendar field and settable
// from an epoch value. Reads never block and always succeed.
type Source interface {
	// Second returns the current second, 0-59.
	Second() int
	// Minute returns the current minute, 0-59.
	Minute() int
	// Hour returns the current hour on a 24-hour clock, 0-23.
	Hour() int
	// Day returns the current day of the month, 1-31.
	Day() int
	// SetTime moves the clock to the given Unix epoch in seconds.
	SetTime(epochSeconds int64)
	// Now returns the full current time in UTC.
	Now() time.Time
}

// fields derives the calendar readings from a time source.
// Implementations embed it so each Source only needs Now and SetTime.
type fields struct {
	now func() time.Time
}

func (f fields) Second() int { return f.now().Second() }
func (f fields) Minute() int { return f.now().Minute() }
func (f fields) Hour() int   { return f.now().Hour() }
func (f fields) Day() int    { return f.now().Day() }

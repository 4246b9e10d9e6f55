package clock

import "time"

// Fake is a test double whose time is set explicitly.
type Fake struct {
	fields

	// T is the current time reported by the clock.
	T time.Time

	// Sets records every epoch passed to SetTime.
	Sets []int64
}

// NewFake creates a Fake clock starting at t.
func NewFake(t time.Time) *Fake {
	f := &Fake{T: t.UTC()}
	f.fields = fields{now: f.Now}
	return f
}

// Now returns T.
func (f *Fake) Now() time.Time {
	return f.T
}

// SetTime moves T to the epoch and records the call.
func (f *Fake) SetTime(epochSeconds int64) {
	f.Sets = append(f.Sets, epochSeconds)
	f.T = time.Unix(epochSeconds, 0).UTC()
}

// Advance moves T forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}

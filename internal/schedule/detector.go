// Package schedule turns a free-running real-time clock into one-shot
// second, minute, hour and day rollover events.
//
// Each detector must be called at least twice per period it watches; the
// second detector therefore needs at least two calls per second.
package schedule

import "time"

// Clock is the part of the clock the detectors read. Every field used by a
// single call comes from one Now reading, so a rollover cannot tear
// between fields.
type Clock interface {
	Now() time.Time
}

// Reading is an optional last-observed field value; the zero value is unset.
type Reading struct {
	value int
	set   bool
}

// Baseline holds the last observed value of each calendar field.
type Baseline struct {
	Second Reading
	Minute Reading
	Hour   Reading
	Day    Reading
}

// Rollovers reports which detectors fired on a Poll.
type Rollovers struct {
	Second bool
	Minute bool
	Hour   bool
	Day    bool
}

// Any reports whether at least one detector fired.
func (r Rollovers) Any() bool {
	return r.Second || r.Minute || r.Hour || r.Day
}

// Detector is edge-triggered: each RolledOver method returns true exactly
// once per change of its field. Not safe for concurrent use.
type Detector struct {
	clock    Clock
	baseline Baseline
}

// NewDetector creates a detector with an unset baseline.
func NewDetector(clock Clock) *Detector {
	return &Detector{clock: clock}
}

// SecondRolledOver returns true once each time the second changes,
// including the first observation after the baseline was unset.
func (d *Detector) SecondRolledOver() bool {
	return changed(&d.baseline.Second, d.clock.Now().Second(), true)
}

// MinuteRolledOver returns true once each time the minute changes,
// including the first observation after the baseline was unset.
func (d *Detector) MinuteRolledOver() bool {
	return changed(&d.baseline.Minute, d.clock.Now().Minute(), true)
}

// HourRolledOver returns true once each time the hour changes,
// including the first observation after the baseline was unset.
func (d *Detector) HourRolledOver() bool {
	return changed(&d.baseline.Hour, d.clock.Now().Hour(), true)
}

// DayRolledOver returns true once each time the day of month changes.
// Unlike the other detectors, the first observation with an unset
// baseline only records the day and returns false.
func (d *Detector) DayRolledOver() bool {
	return changed(&d.baseline.Day, d.clock.Now().Day(), false)
}

// Poll runs all four detectors, second first, against one clock reading.
func (d *Detector) Poll() Rollovers {
	now := d.clock.Now()
	return Rollovers{
		Second: changed(&d.baseline.Second, now.Second(), true),
		Minute: changed(&d.baseline.Minute, now.Minute(), true),
		Hour:   changed(&d.baseline.Hour, now.Hour(), true),
		Day:    changed(&d.baseline.Day, now.Day(), false),
	}
}

// ResetBaseline sets every field to the clock's current reading. Call it
// after the clock has been stepped so the jump is not seen as a rollover.
func (d *Detector) ResetBaseline() {
	now := d.clock.Now()
	d.baseline = Baseline{
		Second: Reading{value: now.Second(), set: true},
		Minute: Reading{value: now.Minute(), set: true},
		Hour:   Reading{value: now.Hour(), set: true},
		Day:    Reading{value: now.Day(), set: true},
	}
}

// Baseline returns a copy of the current baseline.
func (d *Detector) Baseline() Baseline {
	return d.baseline
}

// Value returns the stored value and whether it has been set.
func (r Reading) Value() (int, bool) {
	return r.value, r.set
}

func changed(last *Reading, now int, fireFromUnset bool) bool {
	if !last.set {
		*last = Reading{value: now, set: true}
		return fireFromUnset
	}
	if last.value == now {
		return false
	}
	last.value = now
	return true
}

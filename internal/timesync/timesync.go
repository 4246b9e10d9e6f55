// Package timesync fetches authoritative time from a time-protocol client
// and applies it to the device clock.
package timesync

// Client is a time-protocol client. Update and ForceUpdate must not block.
type Client interface {
	// Begin prepares the client for a new sync cycle.
	Begin()

	// SetOffset sets the offset in seconds added to returned times.
	SetOffset(seconds int)

	// Update reports whether a fresh time value is available.
	Update() bool

	// ForceUpdate starts a new request if none is in flight.
	ForceUpdate()

	// EpochTime returns the latest time as Unix seconds.
	EpochTime() int64
}

// ClockSetter is the part of the clock the sync writes to.
type ClockSetter interface {
	SetTime(epochSeconds int64)
}

// DefaultMaxWait is how many service calls a sync may take before timing out.
const DefaultMaxWait = 30

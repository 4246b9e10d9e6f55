// Package gpio drives the status LED with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Indicator is a single on/off output.
type Indicator interface {
	// Set drives the output high (on) or low (off).
	Set(on bool) error

	// Close switches the output off and releases GPIO resources.
	Close() error
}

// Level returns the LED level for a 1 Hz tick counter:
// solid on when connected and synced, blinking when connected but not
// yet synced, off otherwise.
func Level(connected, synced bool, tick int) bool {
	if !connected {
		return false
	}
	if synced {
		return true
	}
	return tick%2 == 0
}

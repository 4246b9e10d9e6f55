package gpio

// FakeIndicator is a test double that records LED levels.
type FakeIndicator struct {
	// Levels contains every value passed to Set.
	Levels []bool

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the level.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// On reports the last level set.
func (f *FakeIndicator) On() bool {
	return len(f.Levels) > 0 && f.Levels[len(f.Levels)-1]
}

// Close switches the LED off and marks it closed.
func (f *FakeIndicator) Close() error {
	f.Levels = append(f.Levels, false)
	f.Closed = true
	return nil
}

// Reset clears recorded levels.
func (f *FakeIndicator) Reset() {
	f.Levels = nil
	f.Closed = false
	f.SetError = nil
}

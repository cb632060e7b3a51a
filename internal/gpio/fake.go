package gpio

// FakeOutput is a test double that records every level written.
type FakeOutput struct {
	// Writes contains every level passed to Set, in order.
	Writes []Level

	// SetError, if set, will be returned by Set and the level is not recorded.
	SetError error

	// Closed tracks if Close was called.
	Closed bool

	level Level
	safe  Level
}

// NewFakeOutput creates a FakeOutput that starts (and resets) at safe.
func NewFakeOutput(safe Level) *FakeOutput {
	return &FakeOutput{level: safe, safe: safe}
}

// Set records the level.
func (f *FakeOutput) Set(level Level) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, level)
	f.level = level
	return nil
}

// Level returns the last level written.
func (f *FakeOutput) Level() Level {
	return f.level
}

// Close drives the safe level and marks the output closed.
func (f *FakeOutput) Close() error {
	f.level = f.safe
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.Writes = nil
	f.SetError = nil
	f.Closed = false
	f.level = f.safe
}

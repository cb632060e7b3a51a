package pwm

// FakeOutput records duty writes for test assertions.
type FakeOutput struct {
	// Writes contains every duty value passed to SetDuty.
	Writes []int

	// SetError, if set, will be returned by SetDuty.
	SetError error

	// Closed tracks if Close was called.
	Closed bool

	duty    int
	maxDuty int
}

// NewFakeOutput creates a FakeOutput with the given resolution ceiling.
func NewFakeOutput(maxDuty int) *FakeOutput {
	return &FakeOutput{maxDuty: maxDuty}
}

// SetDuty records the clamped duty.
func (f *FakeOutput) SetDuty(duty int) error {
	if f.SetError != nil {
		return f.SetError
	}
	duty = clampDuty(duty, f.maxDuty)
	f.Writes = append(f.Writes, duty)
	f.duty = duty
	return nil
}

// Duty returns the last duty written.
func (f *FakeOutput) Duty() int { return f.duty }

// MaxDuty returns the configured ceiling.
func (f *FakeOutput) MaxDuty() int { return f.maxDuty }

// Close zeroes the duty and marks the output closed.
func (f *FakeOutput) Close() error {
	f.duty = 0
	f.Closed = true
	return nil
}

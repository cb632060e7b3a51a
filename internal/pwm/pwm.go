// Package pwm drives the shared pump intensity output.
//
// Duty values are expressed in the output's native resolution: 0 is fully
// off and MaxDuty (255 for an 8-bit output) is fully on.
package pwm

// Output is the minimal interface the controller needs from a PWM backend.
type Output interface {
	// SetDuty writes a duty value in [0, MaxDuty].
	SetDuty(duty int) error

	// Duty returns the last duty value written.
	Duty() int

	// MaxDuty returns the native resolution ceiling.
	MaxDuty() int

	// Close drives the output to zero and releases it.
	Close() error
}

// Config selects the sysfs channel and its timing.
type Config struct {
	SysfsBase   string
	Chip        int
	Channel     int
	FrequencyHz int
	MaxDuty     int
}

func clampDuty(duty, maxDuty int) int {
	if duty < 0 {
		return 0
	}
	if duty > maxDuty {
		return maxDuty
	}
	return duty
}

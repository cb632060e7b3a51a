// Package gpio provides digital output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is a raw line level.
type Level int

// Raw line levels.
const (
	Low  Level = 0
	High Level = 1
)

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == Low {
		return High
	}
	return Low
}

func (l Level) String() string {
	if l == Low {
		return "LOW"
	}
	return "HIGH"
}

// Output drives a single digital output line.
type Output interface {
	// Set drives the line to the given raw level.
	Set(level Level) error

	// Level returns the last level written.
	Level() Level

	// Close drives the line to its safe level and releases it.
	Close() error
}

// Default line offsets (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultLED  = 2
)

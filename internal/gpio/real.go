//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer is the label shown by gpioinfo for lines held by this process.
const consumer = "irrigation-controller"

// LineOutput drives one line through the Linux GPIO character device.
type LineOutput struct {
	chip  *gpiocdev.Chip
	line  *gpiocdev.Line
	level Level
	safe  Level
}

// NewLineOutput requests offset on chip as an output, initially at safe.
// Close returns the line to safe before releasing it.
func NewLineOutput(chipName string, offset int, safe Level) (*LineOutput, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(int(safe)))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}

	return &LineOutput{
		chip:  chip,
		line:  line,
		level: safe,
		safe:  safe,
	}, nil
}

// Set drives the line to level.
func (o *LineOutput) Set(level Level) error {
	if err := o.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("set pin %d: %w", o.line.Offset(), err)
	}
	o.level = level
	return nil
}

// Level returns the last level written.
func (o *LineOutput) Level() Level {
	return o.level
}

// Close drives the safe level and releases the line and chip.
func (o *LineOutput) Close() error {
	var errs []error

	if o.line != nil {
		if err := o.line.SetValue(int(o.safe)); err != nil {
			errs = append(errs, fmt.Errorf("reset pin %d: %w", o.line.Offset(), err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
		o.line = nil
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		o.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

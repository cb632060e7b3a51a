//go:build !linux

package gpio

import "errors"

// LineOutput is not available on non-Linux platforms.
type LineOutput struct{}

// NewLineOutput returns an error on non-Linux platforms.
func NewLineOutput(chipName string, offset int, safe Level) (*LineOutput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (o *LineOutput) Set(level Level) error {
	return errors.New("gpio: not supported")
}

// Level always reports Low on non-Linux platforms.
func (o *LineOutput) Level() Level {
	return Low
}

// Close is a no-op on non-Linux platforms.
func (o *LineOutput) Close() error {
	return nil
}

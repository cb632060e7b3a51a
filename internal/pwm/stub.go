//go:build !linux

package pwm

import "errors"

// SysfsOutput is not available on non-Linux platforms.
type SysfsOutput struct{}

// OpenSysfs returns an error on non-Linux platforms.
func OpenSysfs(cfg Config) (*SysfsOutput, error) {
	return nil, errors.New("pwm: not supported on this platform (requires Linux)")
}

func (o *SysfsOutput) SetDuty(duty int) error { return errors.New("pwm: not supported") }
func (o *SysfsOutput) Duty() int              { return 0 }
func (o *SysfsOutput) MaxDuty() int           { return 0 }
func (o *SysfsOutput) Close() error           { return nil }

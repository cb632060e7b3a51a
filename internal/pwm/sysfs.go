//go:build linux

package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// SysfsOutput drives a hardware PWM channel via /sys/class/pwm.
//
// On Raspberry Pi the channel only exists once a pwm overlay is enabled
// (dtoverlay=pwm or pwm-2chan).
type SysfsOutput struct {
	chipPath string // <base>/pwmchipN
	pwmPath  string // <base>/pwmchipN/pwmM
	channel  int

	periodNS uint64
	maxDuty  int
	duty     int
	enabled  bool
}

// sysfsOpenFlag is used for attribute writes. Some sysfs attributes reject
// O_TRUNC; tests backed by regular files add it.
var sysfsOpenFlag = os.O_WRONLY

// exportWait bounds how long Open waits for the kernel to create pwmM.
var exportWait = 500 * time.Millisecond

// OpenSysfs exports and configures the channel described by cfg.
// The output starts disabled at duty 0.
func OpenSysfs(cfg Config) (*SysfsOutput, error) {
	if cfg.FrequencyHz <= 0 {
		return nil, fmt.Errorf("pwm: invalid frequency %d", cfg.FrequencyHz)
	}
	if cfg.MaxDuty <= 0 {
		return nil, fmt.Errorf("pwm: invalid max duty %d", cfg.MaxDuty)
	}

	chipPath := filepath.Join(cfg.SysfsBase, fmt.Sprintf("pwmchip%d", cfg.Chip))
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("pwm: %s not found (is the pwm overlay enabled?): %w", chipPath, err)
	}

	o := &SysfsOutput{
		chipPath: chipPath,
		channel:  cfg.Channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", cfg.Channel)),
		maxDuty:  cfg.MaxDuty,
	}

	if err := o.ensureExported(); err != nil {
		return nil, err
	}

	// Disable before changing period/duty (common sysfs requirement).
	_ = o.writeBool("enable", false)

	o.periodNS = uint64(1_000_000_000 / cfg.FrequencyHz)
	if o.periodNS == 0 {
		o.periodNS = 1
	}
	if err := o.writeUint("duty_cycle", 0); err != nil {
		return nil, fmt.Errorf("pwm: reset duty: %w", err)
	}
	if err := o.writeUint("period", o.periodNS); err != nil {
		return nil, fmt.Errorf("pwm: set period: %w", err)
	}
	return o, nil
}

func (o *SysfsOutput) ensureExported() error {
	if _, err := os.Stat(o.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(o.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(o.channel)); err != nil {
		// Already exported by someone else.
		if _, statErr := os.Stat(o.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("pwm: export channel %d: %w", o.channel, err)
	}

	deadline := time.Now().Add(exportWait)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(o.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(o.pwmPath); err != nil {
		return fmt.Errorf("pwm: path not created after export: %w", err)
	}
	return nil
}

// SetDuty writes duty scaled onto the configured period.
func (o *SysfsOutput) SetDuty(duty int) error {
	duty = clampDuty(duty, o.maxDuty)

	ns := o.periodNS * uint64(duty) / uint64(o.maxDuty)
	if err := o.writeUint("duty_cycle", ns); err != nil {
		return fmt.Errorf("pwm: set duty %d: %w", duty, err)
	}
	o.duty = duty

	if !o.enabled {
		if err := o.writeBool("enable", true); err != nil {
			return fmt.Errorf("pwm: enable: %w", err)
		}
		o.enabled = true
	}
	return nil
}

// Duty returns the last duty value written.
func (o *SysfsOutput) Duty() int {
	return o.duty
}

// MaxDuty returns the configured resolution ceiling.
func (o *SysfsOutput) MaxDuty() int {
	return o.maxDuty
}

// Close drives duty 0 and disables the channel. Best-effort.
func (o *SysfsOutput) Close() error {
	err := o.writeUint("duty_cycle", 0)
	_ = o.writeBool("enable", false)
	o.enabled = false
	o.duty = 0
	return err
}

func (o *SysfsOutput) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(o.pwmPath, name), strconv.FormatUint(v, 10))
}

func (o *SysfsOutput) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(o.pwmPath, name), val)
}

// writeSysfs opens path write-only and retries briefly on
// permission/not-exist errors: right after export udev may still be fixing
// up the new attribute files.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		f, err := os.OpenFile(path, sysfsOpenFlag, 0)
		if err != nil {
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		lastErr := errors.Join(werr, cerr)
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return lastErr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) ||
		errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

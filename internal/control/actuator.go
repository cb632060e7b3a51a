package control

import (
	"fmt"
	"time"

	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/pwm"
)

// DefaultPulseDuration is how long a PULSE keeps the pump energized.
const DefaultPulseDuration = 5 * time.Second

// EnergizedLevel returns the line level that runs a pump. The relay board
// is active-low by default: Low energizes, High de-energizes.
func EnergizedLevel(activeLow bool) gpio.Level {
	if activeLow {
		return gpio.Low
	}
	return gpio.High
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	// Energized is the raw level that runs a pump (see EnergizedLevel).
	Energized     gpio.Level
	PulseDuration time.Duration
	// Sleep blocks for the pulse. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Driver maps actuator commands onto the pump outputs and the shared PWM
// output.
type Driver struct {
	outputs   map[int]gpio.Output
	pwm       pwm.Output
	energized gpio.Level
	pulse     time.Duration
	sleep     func(time.Duration)
}

// NewDriver creates a Driver. outputs must hold an output for each channel.
func NewDriver(outputs map[int]gpio.Output, out pwm.Output, cfg DriverConfig) (*Driver, error) {
	for _, id := range []int{ChannelOne, ChannelTwo} {
		if outputs[id] == nil {
			return nil, fmt.Errorf("control: no output for channel %d", id)
		}
	}
	if out == nil {
		return nil, fmt.Errorf("control: pwm output is required")
	}
	if cfg.PulseDuration <= 0 {
		cfg.PulseDuration = DefaultPulseDuration
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &Driver{
		outputs:   outputs,
		pwm:       out,
		energized: cfg.Energized,
		pulse:     cfg.PulseDuration,
		sleep:     cfg.Sleep,
	}, nil
}

// PulseDuration returns the configured pulse length.
func (d *Driver) PulseDuration() time.Duration {
	return d.pulse
}

// ApplyAction drives the active channel.
//
// ActionPulse energizes the pump, blocks the caller for the pulse duration
// and then de-energizes it. The pulse cannot be interrupted: any command
// arriving meanwhile waits until it completes.
func (d *Driver) ApplyAction(st *State, a Action) error {
	ch := st.Active()
	if ch == nil {
		return fmt.Errorf("control: no active channel (id %d)", st.ActiveID)
	}

	switch a {
	case ActionOn:
		if err := d.drive(ch, PumpOn); err != nil {
			return err
		}
	case ActionOff:
		if err := d.drive(ch, PumpOff); err != nil {
			return err
		}
	case ActionPulse:
		if err := d.drive(ch, PumpOn); err != nil {
			return err
		}
		d.sleep(d.pulse)
		if err := d.drive(ch, PumpOff); err != nil {
			return err
		}
	default:
		return fmt.Errorf("control: unknown action %q", a)
	}

	st.LastAction = a
	return nil
}

// SelectChannel makes id the target of subsequent actions. Unknown ids
// leave the selection unchanged and return false.
func (d *Driver) SelectChannel(st *State, id int) bool {
	if !ValidChannel(id) {
		return false
	}
	st.ActiveID = id
	return true
}

// SetIntensity clamps percent, writes the mapped duty and records both.
func (d *Driver) SetIntensity(st *State, percent int) error {
	percent = ClampPercent(percent)
	duty := ToDuty(percent, d.pwm.MaxDuty())
	if err := d.pwm.SetDuty(duty); err != nil {
		return fmt.Errorf("control: set duty %d: %w", duty, err)
	}
	st.Intensity = percent
	st.Duty = duty
	return nil
}

// Reset de-energizes every channel and zeroes the PWM output. Used at
// startup and shutdown; it attempts every output even if one fails.
func (d *Driver) Reset(st *State) error {
	var errs []error
	for i := range st.Channels {
		if err := d.drive(&st.Channels[i], PumpOff); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.pwm.SetDuty(0); err != nil {
		errs = append(errs, fmt.Errorf("control: reset duty: %w", err))
	} else {
		st.Duty = 0
	}
	if len(errs) > 0 {
		return fmt.Errorf("control: reset: %v", errs)
	}
	return nil
}

func (d *Driver) drive(ch *PumpChannel, want PumpState) error {
	level := d.energized
	if want == PumpOff {
		level = d.energized.Invert()
	}
	if err := d.outputs[ch.ID].Set(level); err != nil {
		return fmt.Errorf("control: drive channel %d %s: %w", ch.ID, want, err)
	}
	ch.Current = want
	return nil
}

// Package indicator drives the board status LED as a liveness heartbeat.
package indicator

import (
	"github.com/sweeney/irrigation-controller/internal/gpio"
)

// Blinker toggles an LED each time Tick is called. The control loop calls
// Tick on its blink timer, so the LED stops blinking if the loop stalls.
type Blinker struct {
	out gpio.Output
	lit bool
}

// NewBlinker returns a Blinker for out. A nil out gives a Blinker that
// does nothing.
func NewBlinker(out gpio.Output) *Blinker {
	return &Blinker{out: out}
}

// Tick inverts the LED.
func (b *Blinker) Tick() error {
	if b == nil || b.out == nil {
		return nil
	}
	next := gpio.High
	if b.lit {
		next = gpio.Low
	}
	if err := b.out.Set(next); err != nil {
		return err
	}
	b.lit = !b.lit
	return nil
}

// Lit reports whether the LED is on.
func (b *Blinker) Lit() bool {
	return b != nil && b.lit
}

// Off turns the LED off and releases the line.
func (b *Blinker) Off() error {
	if b == nil || b.out == nil {
		return nil
	}
	b.lit = false
	if err := b.out.Set(gpio.Low); err != nil {
		b.out.Close()
		return err
	}
	return b.out.Close()
}

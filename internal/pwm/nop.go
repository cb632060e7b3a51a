package pwm

// NopOutput tracks duty in memory without touching hardware. Used when
// the board has no PWM channel wired up.
type NopOutput struct {
	duty    int
	maxDuty int
}

// NewNopOutput creates a NopOutput with the given resolution ceiling.
func NewNopOutput(maxDuty int) *NopOutput {
	return &NopOutput{maxDuty: maxDuty}
}

func (n *NopOutput) SetDuty(duty int) error {
	n.duty = clampDuty(duty, n.maxDuty)
	return nil
}

func (n *NopOutput) Duty() int    { return n.duty }
func (n *NopOutput) MaxDuty() int { return n.maxDuty }
func (n *NopOutput) Close() error { n.duty = 0; return nil }

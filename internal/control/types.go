// Package control contains the pump controller core: command routing, the
// actuator driver, intensity mapping and status publication.
//
// All mutable controller state lives in a single State value that the
// control loop owns and passes by pointer into each call. Nothing here is
// safe for concurrent use; callers must keep at most one command in flight.
package control

import "strconv"

// PumpState is the physical state of a pump channel.
type PumpState string

const (
	PumpOff PumpState = "OFF"
	PumpOn  PumpState = "ON"
)

// Action is an actuator command.
type Action string

const (
	ActionOn    Action = "ON"
	ActionOff   Action = "OFF"
	ActionPulse Action = "PULSE"
)

// Channel ids. Exactly these two channels exist.
const (
	ChannelOne = 1
	ChannelTwo = 2
)

// PumpChannel is one selectable pump output.
type PumpChannel struct {
	ID      int
	Pin     int
	Current PumpState
}

// State is the controller's mutable state.
type State struct {
	Channels  [2]PumpChannel
	ActiveID  int
	Intensity int // percent, always within [0,100]
	Duty      int // last duty written to the PWM output

	// LastAction is the last action applied. After a pulse it stays
	// ActionPulse even though the channel is physically off.
	LastAction Action
}

// NewState returns the power-on defaults: both channels off, channel 1
// active, intensity 0. pins maps channel id to its line offset.
func NewState(pins map[int]int) *State {
	return &State{
		Channels: [2]PumpChannel{
			{ID: ChannelOne, Pin: pins[ChannelOne], Current: PumpOff},
			{ID: ChannelTwo, Pin: pins[ChannelTwo], Current: PumpOff},
		},
		ActiveID:   ChannelOne,
		LastAction: ActionOff,
	}
}

// Active returns the currently selected channel.
func (s *State) Active() *PumpChannel {
	return s.Channel(s.ActiveID)
}

// Channel returns the channel with the given id, or nil.
func (s *State) Channel(id int) *PumpChannel {
	if !ValidChannel(id) {
		return nil
	}
	return &s.Channels[id-1]
}

// ValidChannel reports whether id names an existing channel.
func ValidChannel(id int) bool {
	return id == ChannelOne || id == ChannelTwo
}

// StatusReport is a derived snapshot of State for publication or display.
type StatusReport struct {
	ActivePumpID int
	Action       Action
	PumpState    PumpState // physical state of the active channel
	Intensity    int
	Duty         int
	Channels     []ChannelReport
}

// ChannelReport is the per-channel part of a StatusReport.
type ChannelReport struct {
	ID    int
	Pin   int
	State PumpState
}

// Report derives a StatusReport from the current state.
func (s *State) Report() StatusReport {
	r := StatusReport{
		ActivePumpID: s.ActiveID,
		Action:       s.LastAction,
		Intensity:    s.Intensity,
		Duty:         s.Duty,
	}
	if ch := s.Active(); ch != nil {
		r.PumpState = ch.Current
	}
	for _, ch := range s.Channels {
		r.Channels = append(r.Channels, ChannelReport{ID: ch.ID, Pin: ch.Pin, State: ch.Current})
	}
	return r
}

// Topics names the inbound command topics and outbound status topics.
type Topics struct {
	Action          string
	Intensity       string
	Pump            string
	StatusAction    string
	StatusIntensity string
	StatusPump      string
}

// DefaultTopics returns the standard irrigation/* topic set.
func DefaultTopics() Topics {
	return Topics{
		Action:          "irrigation/action",
		Intensity:       "irrigation/intensity",
		Pump:            "irrigation/pump",
		StatusAction:    "irrigation/status/action",
		StatusIntensity: "irrigation/status/intensity",
		StatusPump:      "irrigation/status/pump",
	}
}

// Commands returns the inbound topics the controller subscribes to.
func (t Topics) Commands() []string {
	return []string{t.Action, t.Intensity, t.Pump}
}

// Message is one outbound status message.
type Message struct {
	Topic   string
	Payload string
}

// StatusMessages returns one message per status dimension, used to
// republish the full state.
func StatusMessages(t Topics, r StatusReport) []Message {
	return []Message{
		{Topic: t.StatusAction, Payload: string(r.Action)},
		{Topic: t.StatusIntensity, Payload: strconv.Itoa(r.Intensity)},
		{Topic: t.StatusPump, Payload: strconv.Itoa(r.ActivePumpID)},
	}
}

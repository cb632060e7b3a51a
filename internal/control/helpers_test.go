package control

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logging"
	"github.com/sweeney/irrigation-controller/internal/pwm"
)

// rig bundles a driver with its fake hardware.
type rig struct {
	pins   map[int]*gpio.FakeOutput
	pwm    *pwm.FakeOutput
	driver *Driver
	router *Router
	state  *State
	sleeps []time.Duration
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		pins: map[int]*gpio.FakeOutput{
			1: gpio.NewFakeOutput(gpio.High),
			2: gpio.NewFakeOutput(gpio.High),
		},
		pwm:   pwm.NewFakeOutput(255),
		state: NewState(map[int]int{1: 27, 2: 26}),
	}
	outputs := map[int]gpio.Output{1: r.pins[1], 2: r.pins[2]}
	d, err := NewDriver(outputs, r.pwm, DriverConfig{
		Energized:     EnergizedLevel(true),
		PulseDuration: 3 * time.Second,
		Sleep:         func(d time.Duration) { r.sleeps = append(r.sleeps, d) },
	})
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	r.driver = d
	r.router = NewRouter(DefaultTopics(), d, logging.Discard())
	return r
}

// fakeTransport records published messages.
type fakeTransport struct {
	sent []Message
	err  error
}

func (f *fakeTransport) Publish(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, Message{Topic: topic, Payload: string(payload)})
	return nil
}

// fakeConn is a settable Connectivity.
type fakeConn struct {
	connected bool
	failures  []error
}

func (f *fakeConn) Connected() bool { return f.connected }

func (f *fakeConn) ReportFailure(err error) {
	f.failures = append(f.failures, err)
	f.connected = false
}

var errBroker = errors.New("broker gone")

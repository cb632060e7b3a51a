package internal

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/irrigation-controller/internal/control"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logging"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/pwm"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// controller wires the real packages to fake hardware and a fake broker,
// driven synchronously the way the main loop drives them.
type controller struct {
	t         *testing.T
	pins      map[int]*gpio.FakeOutput
	pwm       *pwm.FakeOutput
	inbox     *mqtt.Inbox
	client    *mqtt.FakeClient
	sup       *mqtt.Supervisor
	router    *control.Router
	publisher *control.Publisher
	state     *control.State
	tracker   *status.Tracker
	now       time.Time
	announced bool
}

func newController(t *testing.T, inboxSize int) *controller {
	t.Helper()
	log := logging.Discard()
	c := &controller{
		t: t,
		pins: map[int]*gpio.FakeOutput{
			1: gpio.NewFakeOutput(gpio.High),
			2: gpio.NewFakeOutput(gpio.High),
		},
		pwm:   pwm.NewFakeOutput(255),
		state: control.NewState(map[int]int{1: 27, 2: 26}),
		now:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	driver, err := control.NewDriver(
		map[int]gpio.Output{1: c.pins[1], 2: c.pins[2]},
		c.pwm,
		control.DriverConfig{
			Energized:     control.EnergizedLevel(true),
			PulseDuration: 5 * time.Second,
			Sleep:         func(time.Duration) {},
		},
	)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := driver.Reset(c.state); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	topics := control.DefaultTopics()
	c.inbox = mqtt.NewInbox(inboxSize, log)
	c.client = mqtt.NewFakeClient(c.inbox)
	c.sup = mqtt.NewSupervisor(c.client, mqtt.SupervisorConfig{
		ClientID: mqtt.NewClientID("irrigation"),
		Topics:   topics.Commands(),
		Go:       func(f func()) { f() },
	}, log)
	c.router = control.NewRouter(topics, driver, log)
	c.publisher = control.NewPublisher(c.client, c.sup, log)
	c.tracker = status.NewTracker(c.now, status.Config{Broker: "tcp://broker:1883", MaxDuty: 255})
	return c
}

// advance moves the clock and services the connection, announcing the
// full state when the first session comes up.
func (c *controller) advance(d time.Duration) {
	c.now = c.now.Add(d)
	if c.sup.Tick(c.now) && !c.announced {
		c.announced = true
		c.publisher.Publish(control.StatusMessages(c.router.Topics(), c.state.Report()))
	}
	c.tracker.SetMQTT(status.MQTTInfo{
		State:     c.sup.State().String(),
		Connected: c.sup.Connected(),
		ClientID:  c.sup.ClientID(),
	})
}

// drain processes every queued command in arrival order.
func (c *controller) drain() {
	for {
		msg, ok := c.inbox.Pop()
		if !ok {
			return
		}
		msgs := c.router.Handle(msg.Topic, msg.Payload, c.state)
		c.publisher.Publish(msgs)
		c.tracker.Update(c.state.Report())
		c.tracker.CountCommand(len(msgs) > 0)
	}
}

func (c *controller) send(topic, payload string) {
	c.t.Helper()
	if !c.client.Deliver(topic, payload) {
		c.t.Fatalf("inbox full delivering %s=%q", topic, payload)
	}
	c.drain()
}

func (c *controller) statusJSON() status.StatusInner {
	c.t.Helper()
	var out status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(c.tracker.Snapshot()), &out); err != nil {
		c.t.Fatalf("status JSON: %v", err)
	}
	return out.Status
}

// TestIntegrationWateringCycle runs a typical remote session: select the
// second pump, set the flow, run it, stop it.
func TestIntegrationWateringCycle(t *testing.T) {
	c := newController(t, 16)
	c.advance(0)

	c.send("irrigation/pump", "2")
	c.send("irrigation/intensity", "55")
	c.send("irrigation/action", "ON")

	if c.pins[2].Level() != gpio.Low || c.pins[1].Level() != gpio.High {
		t.Errorf("pins: ch1=%s ch2=%s, want ch2 energized only", c.pins[1].Level(), c.pins[2].Level())
	}
	if c.pwm.Duty() != 140 {
		t.Errorf("duty = %d, want 140", c.pwm.Duty())
	}

	st := c.statusJSON()
	if st.State != "ON" || st.ActivePump != 2 || st.Intensity != 55 || st.Duty != 140 {
		t.Errorf("status = %+v", st)
	}

	c.send("irrigation/action", "OFF")
	if c.pins[2].Level() != gpio.High {
		t.Error("pump 2 should be off")
	}

	want := []mqtt.Published{
		{Topic: "irrigation/status/action", Payload: "OFF"},
		{Topic: "irrigation/status/intensity", Payload: "0"},
		{Topic: "irrigation/status/pump", Payload: "1"},
		{Topic: "irrigation/status/pump", Payload: "2"},
		{Topic: "irrigation/status/intensity", Payload: "55"},
		{Topic: "irrigation/status/action", Payload: "ON"},
		{Topic: "irrigation/status/action", Payload: "OFF"},
	}
	got := c.client.PublishedMessages()
	if len(got) != len(want) {
		t.Fatalf("published %v\nwant %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("publish %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIntegrationSubscribesBeforeConnected(t *testing.T) {
	c := newController(t, 4)
	c.advance(0)

	calls := strings.Join(c.client.Calls, ",")
	if !strings.HasPrefix(calls, "connect,subscribe,publish") {
		t.Errorf("call order = %s, want connect then subscribe before any publish", calls)
	}
	if len(c.client.Subscriptions) != 1 || len(c.client.Subscriptions[0]) != 3 {
		t.Errorf("subscriptions = %v", c.client.Subscriptions)
	}
	if !c.statusJSON().MQTT.Connected {
		t.Error("status should report connected")
	}
}

func TestIntegrationOutOfRangeValues(t *testing.T) {
	c := newController(t, 16)
	c.advance(0)
	base := len(c.client.PublishedMessages())

	c.send("irrigation/intensity", "150")
	c.send("irrigation/intensity", "-4")
	c.send("irrigation/intensity", "wet")
	c.send("irrigation/pump", "7")
	c.send("irrigation/action", "on")

	want := []mqtt.Published{
		{Topic: "irrigation/status/intensity", Payload: "100"},
		{Topic: "irrigation/status/intensity", Payload: "0"},
		{Topic: "irrigation/status/intensity", Payload: "0"},
		{Topic: "irrigation/status/pump", Payload: "7"},
	}
	got := c.client.PublishedMessages()[base:]
	if len(got) != len(want) {
		t.Fatalf("published %v\nwant %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("publish %d = %v, want %v", i, got[i], want[i])
		}
	}

	st := c.statusJSON()
	if st.ActivePump != 1 {
		t.Errorf("active pump = %d, invalid id must not change selection", st.ActivePump)
	}
	if st.Commands.Received != 5 || st.Commands.Ignored != 1 {
		t.Errorf("commands = %+v", st.Commands)
	}
}

func TestIntegrationOutageAndRecovery(t *testing.T) {
	c := newController(t, 16)
	c.advance(0)
	c.send("irrigation/action", "ON")

	c.client.Drop()
	c.advance(time.Second)
	if c.statusJSON().MQTT.State != "disconnected" {
		t.Fatalf("mqtt state = %q", c.statusJSON().MQTT.State)
	}

	before := len(c.client.PublishedMessages())
	// Local commands still actuate while the broker is away.
	c.inbox.Push(mqtt.Message{Topic: "irrigation/action", Payload: "OFF"})
	c.drain()
	if c.pins[1].Level() != gpio.High {
		t.Error("OFF must apply while disconnected")
	}

	// Retries are spaced by the reconnect interval.
	c.client.SetConnectErr(errors.New("refused"))
	c.advance(time.Second)
	attempts := c.client.ConnectCount()
	for i := 0; i < 4; i++ {
		c.advance(time.Second)
	}
	if got := c.client.ConnectCount() - attempts; got != 1 {
		t.Errorf("attempts in 4s window = %d, want 1", got)
	}

	c.client.SetConnectErr(nil)
	c.advance(5 * time.Second)
	if !c.sup.Connected() {
		t.Fatal("expected reconnect")
	}

	// Status produced during the outage is not replayed.
	if got := c.client.PublishedMessages()[before:]; len(got) != 0 {
		t.Errorf("published after reconnect: %v", got)
	}
	c.send("irrigation/action", "PULSE")
	if got := c.client.PublishedMessages()[before:]; len(got) != 1 || got[0].Payload != "PULSE" {
		t.Errorf("published = %v, want the PULSE status only", got)
	}
	if len(c.client.ClientIDs) < 2 || c.client.ClientIDs[0] != c.client.ClientIDs[len(c.client.ClientIDs)-1] {
		t.Errorf("client id changed within one boot: %v", c.client.ClientIDs)
	}
}

func TestIntegrationInboxOverflowDropsNewest(t *testing.T) {
	c := newController(t, 2)
	c.advance(0)

	c.client.Deliver("irrigation/intensity", "10")
	c.client.Deliver("irrigation/intensity", "20")
	if c.client.Deliver("irrigation/intensity", "30") {
		t.Fatal("third delivery should be rejected by a full inbox")
	}
	c.drain()
	c.tracker.SetDropped(c.inbox.Dropped())

	st := c.statusJSON()
	if st.Intensity != 20 {
		t.Errorf("intensity = %d, want 20 (newest dropped)", st.Intensity)
	}
	if st.Commands.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", st.Commands.Dropped)
	}
}

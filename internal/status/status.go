// Package status provides a thread-safe view of the controller state for
// readers outside the control loop (HTTP handlers, websocket clients).
package status

import (
	"sync"
	"time"

	"github.com/sweeney/irrigation-controller/internal/control"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains controller configuration for display.
type Config struct {
	Broker           string
	HTTPAddr         string
	PulseMs          int64
	ReconnectMs      int64
	MaxDuty          int
	HistoryEnabled   bool
	TelemetryEnabled bool
}

// MQTTInfo is the connectivity part of a Snapshot.
type MQTTInfo struct {
	State     string
	Connected bool
	ClientID  string
}

// CommandCounts tallies inbound commands since startup.
type CommandCounts struct {
	Received int
	Applied  int
	Ignored  int
	Dropped  uint64 // rejected by a full inbox
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Report    control.StatusReport
	StartTime time.Time
	Now       time.Time
	MQTT      MQTTInfo
	Network   *NetworkInfo
	Commands  CommandCounts
	Config    Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// StateToken returns "ON" if the active pump is energized, else "OFF".
func (s Snapshot) StateToken() string {
	if s.Report.PumpState == control.PumpOn {
		return "ON"
	}
	return "OFF"
}

// Tracker holds the latest snapshot behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			MQTT:      MQTTInfo{State: "disconnected"},
		},
	}
}

// Update replaces the status report. Called from the control loop after
// every command.
func (t *Tracker) Update(report control.StatusReport) {
	t.mu.Lock()
	t.snap.Report = report
	t.mu.Unlock()
}

// SetMQTT sets the connection state.
func (t *Tracker) SetMQTT(info MQTTInfo) {
	t.mu.Lock()
	t.snap.MQTT = info
	t.mu.Unlock()
}

// CountCommand records one processed command.
func (t *Tracker) CountCommand(applied bool) {
	t.mu.Lock()
	t.snap.Commands.Received++
	if applied {
		t.snap.Commands.Applied++
	} else {
		t.snap.Commands.Ignored++
	}
	t.mu.Unlock()
}

// SetDropped sets the number of commands lost to a full inbox.
func (t *Tracker) SetDropped(n uint64) {
	t.mu.Lock()
	t.snap.Commands.Dropped = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Report.Channels = append([]control.ChannelReport(nil), t.snap.Report.Channels...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

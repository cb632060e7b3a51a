package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	State         string       `json:"state"`
	Action        string       `json:"action"`
	ActivePump    int          `json:"active_pump"`
	Intensity     int          `json:"intensity"`
	Duty          int          `json:"duty"`
	Pumps         []PumpJSON   `json:"pumps"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Commands      CommandsJSON `json:"commands"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// PumpJSON is one channel's state.
type PumpJSON struct {
	ID    int    `json:"id"`
	Pin   int    `json:"pin"`
	State string `json:"state"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	ClientID  string `json:"client_id,omitempty"`
	Broker    string `json:"broker"`
}

// CommandsJSON is the JSON representation of command counts.
type CommandsJSON struct {
	Received int    `json:"received"`
	Applied  int    `json:"applied"`
	Ignored  int    `json:"ignored"`
	Dropped  uint64 `json:"dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	PulseMs     int64  `json:"pulse_ms"`
	ReconnectMs int64  `json:"reconnect_ms"`
	MaxDuty     int    `json:"max_duty"`
	History     bool   `json:"history"`
	Telemetry   bool   `json:"telemetry"`
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Report
	action := string(r.Action)
	if action == "" {
		action = "OFF"
	}

	pumps := make([]PumpJSON, 0, len(r.Channels))
	for _, ch := range r.Channels {
		pumps = append(pumps, PumpJSON{ID: ch.ID, Pin: ch.Pin, State: string(ch.State)})
	}

	inner := StatusInner{
		State:         snap.StateToken(),
		Action:        action,
		ActivePump:    r.ActivePumpID,
		Intensity:     r.Intensity,
		Duty:          r.Duty,
		Pumps:         pumps,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			State:     snap.MQTT.State,
			Connected: snap.MQTT.Connected,
			ClientID:  snap.MQTT.ClientID,
			Broker:    snap.Config.Broker,
		},
		Commands: CommandsJSON{
			Received: snap.Commands.Received,
			Applied:  snap.Commands.Applied,
			Ignored:  snap.Commands.Ignored,
			Dropped:  snap.Commands.Dropped,
		},
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			PulseMs:     snap.Config.PulseMs,
			ReconnectMs: snap.Config.ReconnectMs,
			MaxDuty:     snap.Config.MaxDuty,
			History:     snap.Config.HistoryEnabled,
			Telemetry:   snap.Config.TelemetryEnabled,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatCompact returns the single-line JSON status pushed to websocket
// clients.
func FormatCompact(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap)})
	return data
}

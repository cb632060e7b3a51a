package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.MQTT.ReconnectInterval != 5*time.Second {
		t.Errorf("ReconnectInterval = %v, want 5s", cfg.MQTT.ReconnectInterval)
	}
	if cfg.MQTT.Topics.Action != "irrigation/action" {
		t.Errorf("Topics.Action = %q", cfg.MQTT.Topics.Action)
	}
	if cfg.MQTT.Topics.StatusPump != "irrigation/status/pump" {
		t.Errorf("Topics.StatusPump = %q", cfg.MQTT.Topics.StatusPump)
	}
	if !cfg.Pumps.ActiveLow {
		t.Error("pumps should default to active-low")
	}
	if cfg.PWM.MaxDuty != 255 {
		t.Errorf("PWM.MaxDuty = %d, want 255", cfg.PWM.MaxDuty)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  host: "broker.local"
  port: 8883
  tls: true
  username: "pump"
  password: "secret"
  reconnect_interval: 10s
pumps:
  pins:
    1: 5
    2: 6
  active_low: false
  pulse_duration: 2s
http:
  addr: ":8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Host != "broker.local" {
		t.Errorf("MQTT.Host = %q", cfg.MQTT.Host)
	}
	if got := cfg.MQTT.BrokerURL(); got != "ssl://broker.local:8883" {
		t.Errorf("BrokerURL() = %q", got)
	}
	if cfg.MQTT.ReconnectInterval != 10*time.Second {
		t.Errorf("ReconnectInterval = %v", cfg.MQTT.ReconnectInterval)
	}
	if cfg.Pumps.Pins[1] != 5 || cfg.Pumps.Pins[2] != 6 {
		t.Errorf("Pumps.Pins = %v", cfg.Pumps.Pins)
	}
	if cfg.Pumps.ActiveLow {
		t.Error("ActiveLow should be overridden to false")
	}
	if cfg.Pumps.PulseDuration != 2*time.Second {
		t.Errorf("PulseDuration = %v", cfg.Pumps.PulseDuration)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IRRIGATION_MQTT_HOST", "env-broker")
	t.Setenv("IRRIGATION_MQTT_PORT", "1884")
	t.Setenv("IRRIGATION_MQTT_USERNAME", "env-user")
	t.Setenv("IRRIGATION_MQTT_PASSWORD", "env-pass")
	t.Setenv("IRRIGATION_HTTP_ADDR", ":9090")
	t.Setenv("IRRIGATION_DATABASE_PATH", "/tmp/env.db")

	path := writeConfig(t, "mqtt:\n  host: file-broker\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Host != "env-broker" {
		t.Errorf("MQTT.Host = %q, want env-broker", cfg.MQTT.Host)
	}
	if cfg.MQTT.Port != 1884 {
		t.Errorf("MQTT.Port = %d, want 1884", cfg.MQTT.Port)
	}
	if cfg.MQTT.Username != "env-user" || cfg.MQTT.Password != "env-pass" {
		t.Errorf("MQTT auth = %q/%q", cfg.MQTT.Username, cfg.MQTT.Password)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.MQTT.Port = 0 }, "mqtt.port"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"zero reconnect", func(c *Config) { c.MQTT.ReconnectInterval = 0 }, "mqtt.reconnect_interval"},
		{"missing topic", func(c *Config) { c.MQTT.Topics.Pump = "" }, "mqtt.topics.pump"},
		{"missing pump 2", func(c *Config) { delete(c.Pumps.Pins, 2) }, "pumps.pins.2"},
		{"third pump", func(c *Config) { c.Pumps.Pins[3] = 4 }, "exactly channels 1 and 2"},
		{"zero pulse", func(c *Config) { c.Pumps.PulseDuration = 0 }, "pumps.pulse_duration"},
		{"zero max duty", func(c *Config) { c.PWM.MaxDuty = 0 }, "pwm.max_duty"},
		{"password without user", func(c *Config) { c.HTTP.Password = "x" }, "http.username"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enable = true; c.InfluxDB.Bucket = "b" }, "influxdb.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Password = "broker-secret"
	cfg.InfluxDB.Token = "influx-token"

	r := cfg.Redacted()
	if r.MQTT.Password != "********" || r.InfluxDB.Token != "********" {
		t.Errorf("secrets not masked: %q %q", r.MQTT.Password, r.InfluxDB.Token)
	}
	if r.HTTP.Password != "" {
		t.Errorf("empty secret should stay empty, got %q", r.HTTP.Password)
	}
	if cfg.MQTT.Password != "broker-secret" {
		t.Error("Redacted must not modify the original")
	}
	r.Pumps.Pins[1] = 99
	if cfg.Pumps.Pins[1] == 99 {
		t.Error("Redacted must copy the pin map")
	}
}

package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Pumps     PumpsConfig     `yaml:"pumps"`
	PWM       PWMConfig       `yaml:"pwm"`
	Indicator IndicatorConfig `yaml:"indicator"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	TLS               bool          `yaml:"tls"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	ClientIDPrefix    string        `yaml:"client_id_prefix"`
	QoS               int           `yaml:"qos"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	InboxSize         int           `yaml:"inbox_size"`
	Topics            TopicsConfig  `yaml:"topics"`
}

// TopicsConfig holds the inbound command topics and outbound status topics.
type TopicsConfig struct {
	Action          string `yaml:"action"`
	Intensity       string `yaml:"intensity"`
	Pump            string `yaml:"pump"`
	StatusAction    string `yaml:"status_action"`
	StatusIntensity string `yaml:"status_intensity"`
	StatusPump      string `yaml:"status_pump"`
}

// PumpsConfig describes the two pump channels.
type PumpsConfig struct {
	Chip string `yaml:"chip"`
	// Pins maps channel id (1 or 2) to its BCM line offset.
	Pins map[int]int `yaml:"pins"`
	// ActiveLow is true when a low line level energizes the pump relay.
	ActiveLow     bool          `yaml:"active_low"`
	PulseDuration time.Duration `yaml:"pulse_duration"`
}

// PWMConfig describes the shared intensity output.
type PWMConfig struct {
	Enable      bool   `yaml:"enable"`
	SysfsBase   string `yaml:"sysfs_base"`
	Chip        int    `yaml:"chip"`
	Channel     int    `yaml:"channel"`
	FrequencyHz int    `yaml:"frequency_hz"`
	MaxDuty     int    `yaml:"max_duty"`
}

// IndicatorConfig describes the board status LED.
type IndicatorConfig struct {
	Enable        bool          `yaml:"enable"`
	Pin           int           `yaml:"pin"`
	BlinkInterval time.Duration `yaml:"blink_interval"`
}

// HTTPConfig contains the local web UI settings.
type HTTPConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DatabaseConfig contains the SQLite command history settings.
type DatabaseConfig struct {
	Enable      bool   `yaml:"enable"`
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains the optional telemetry sink settings.
type InfluxDBConfig struct {
	Enable        bool   `yaml:"enable"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from path and applies environment overrides.
// An empty path yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			ClientIDPrefix:    "irrigation",
			QoS:               0,
			ReconnectInterval: 5 * time.Second,
			InboxSize:         32,
			Topics: TopicsConfig{
				Action:          "irrigation/action",
				Intensity:       "irrigation/intensity",
				Pump:            "irrigation/pump",
				StatusAction:    "irrigation/status/action",
				StatusIntensity: "irrigation/status/intensity",
				StatusPump:      "irrigation/status/pump",
			},
		},
		Pumps: PumpsConfig{
			Chip:          "gpiochip0",
			Pins:          map[int]int{1: 27, 2: 26},
			ActiveLow:     true,
			PulseDuration: 5 * time.Second,
		},
		PWM: PWMConfig{
			Enable:      true,
			SysfsBase:   "/sys/class/pwm",
			Chip:        0,
			Channel:     0,
			FrequencyHz: 1000,
			MaxDuty:     255,
		},
		Indicator: IndicatorConfig{
			Enable:        true,
			Pin:           2,
			BlinkInterval: time.Second,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Database: DatabaseConfig{
			Enable:      true,
			Path:        "./data/irrigation.db",
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies IRRIGATION_SECTION_KEY environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRRIGATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Port = port
		}
	}
	if v := os.Getenv("IRRIGATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("IRRIGATION_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("IRRIGATION_WEB_PASSWORD"); v != "" {
		cfg.HTTP.Password = v
	}
	if v := os.Getenv("IRRIGATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("IRRIGATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Host == "" {
		errs = append(errs, "mqtt.host is required")
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, "mqtt.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.ReconnectInterval <= 0 {
		errs = append(errs, "mqtt.reconnect_interval must be positive")
	}
	if c.MQTT.InboxSize < 1 {
		errs = append(errs, "mqtt.inbox_size must be at least 1")
	}
	t := c.MQTT.Topics
	for name, topic := range map[string]string{
		"action": t.Action, "intensity": t.Intensity, "pump": t.Pump,
		"status_action": t.StatusAction, "status_intensity": t.StatusIntensity, "status_pump": t.StatusPump,
	} {
		if topic == "" {
			errs = append(errs, fmt.Sprintf("mqtt.topics.%s is required", name))
		}
	}

	for _, id := range []int{1, 2} {
		if _, ok := c.Pumps.Pins[id]; !ok {
			errs = append(errs, fmt.Sprintf("pumps.pins.%d is required", id))
		}
	}
	if len(c.Pumps.Pins) != 2 {
		errs = append(errs, "pumps.pins must define exactly channels 1 and 2")
	}
	if c.Pumps.PulseDuration <= 0 {
		errs = append(errs, "pumps.pulse_duration must be positive")
	}

	if c.PWM.MaxDuty < 1 {
		errs = append(errs, "pwm.max_duty must be at least 1")
	}
	if c.PWM.Enable && c.PWM.FrequencyHz <= 0 {
		errs = append(errs, "pwm.frequency_hz must be positive")
	}

	if c.Indicator.Enable && c.Indicator.BlinkInterval <= 0 {
		errs = append(errs, "indicator.blink_interval must be positive")
	}

	if c.HTTP.Password != "" && c.HTTP.Username == "" {
		errs = append(errs, "http.username is required when http.password is set")
	}

	if c.Database.Enable && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.InfluxDB.Enable {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		// map iteration above is unordered
		slices.Sort(errs)
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BrokerURL returns the paho broker URL for the configured host and port.
func (c MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if c.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Redacted returns a copy of c with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Pumps.Pins = make(map[int]int, len(c.Pumps.Pins))
	for k, v := range c.Pumps.Pins {
		out.Pumps.Pins[k] = v
	}
	for _, s := range []*string{&out.MQTT.Password, &out.HTTP.Password, &out.InfluxDB.Token} {
		if *s != "" {
			*s = "********"
		}
	}
	return &out
}

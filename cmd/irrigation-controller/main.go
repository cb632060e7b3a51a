// Command irrigation-controller drives two pumps and a shared intensity
// output from MQTT commands and a local web page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/control"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/history"
	"github.com/sweeney/irrigation-controller/internal/indicator"
	"github.com/sweeney/irrigation-controller/internal/logging"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/pwm"
	"github.com/sweeney/irrigation-controller/internal/status"
	"github.com/sweeney/irrigation-controller/internal/telemetry"
	"github.com/sweeney/irrigation-controller/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	supervisorPoll  = 500 * time.Millisecond
	historyDepth    = 64
	shutdownTimeout = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults and environment only if empty)")
	checkConfig := flag.Bool("check-config", false, "Validate the configuration, print it and exit")
	logLevel := flag.String("log-level", "", "Override logging.level (debug, info, warn, error)")
	flag.Parse()

	boot := logging.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if *checkConfig {
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			boot.Error("failed to render configuration", "error", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
		return
	}

	log := logging.New(cfg.Logging, version)
	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	ctx := context.Background()

	// Pump outputs start de-energized.
	energized := control.EnergizedLevel(cfg.Pumps.ActiveLow)
	outputs := make(map[int]gpio.Output, 2)
	for _, id := range []int{control.ChannelOne, control.ChannelTwo} {
		pin := cfg.Pumps.Pins[id]
		out, err := gpio.NewLineOutput(cfg.Pumps.Chip, pin, energized.Invert())
		if err != nil {
			return fmt.Errorf("init pump %d (pin %d): %w", id, pin, err)
		}
		defer out.Close()
		outputs[id] = out
	}

	var duty pwm.Output
	if cfg.PWM.Enable {
		s, err := pwm.OpenSysfs(pwm.Config{
			SysfsBase:   cfg.PWM.SysfsBase,
			Chip:        cfg.PWM.Chip,
			Channel:     cfg.PWM.Channel,
			FrequencyHz: cfg.PWM.FrequencyHz,
			MaxDuty:     cfg.PWM.MaxDuty,
		})
		if err != nil {
			return fmt.Errorf("init pwm: %w", err)
		}
		defer s.Close()
		duty = s
	} else {
		log.Info("pwm disabled, intensity is tracked but not output")
		duty = pwm.NewNopOutput(cfg.PWM.MaxDuty)
	}

	var blinker *indicator.Blinker
	if cfg.Indicator.Enable {
		led, err := gpio.NewLineOutput(cfg.Pumps.Chip, cfg.Indicator.Pin, gpio.Low)
		if err != nil {
			log.Warn("indicator unavailable", "pin", cfg.Indicator.Pin, "error", err)
		} else {
			blinker = indicator.NewBlinker(led)
		}
	}

	driver, err := control.NewDriver(outputs, duty, control.DriverConfig{
		Energized:     energized,
		PulseDuration: cfg.Pumps.PulseDuration,
	})
	if err != nil {
		return err
	}
	state := control.NewState(cfg.Pumps.Pins)
	if err := driver.Reset(state); err != nil {
		return fmt.Errorf("reset outputs: %w", err)
	}

	topics := topicsFromConfig(cfg.MQTT.Topics)
	router := control.NewRouter(topics, driver, log.Component("router"))

	mqttLog := log.Component("mqtt")
	inbox := mqtt.NewInbox(cfg.MQTT.InboxSize, mqttLog)
	client := mqtt.NewPahoClient(mqtt.PahoOptions{
		BrokerURL: cfg.MQTT.BrokerURL(),
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		QoS:       byte(cfg.MQTT.QoS),
	}, inbox, mqttLog)
	sup := mqtt.NewSupervisor(client, mqtt.SupervisorConfig{
		ClientID: mqtt.NewClientID(cfg.MQTT.ClientIDPrefix),
		Topics:   topics.Commands(),
		Interval: cfg.MQTT.ReconnectInterval,
	}, mqttLog)
	defer sup.Close()
	publisher := control.NewPublisher(client, sup, log.Component("publisher"))

	// History and telemetry are optional; failures to open them are logged
	// and the controller runs without them.
	var store *history.Store
	if cfg.Database.Enable {
		store, err = history.Open(ctx, history.Config{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout})
		if err != nil {
			log.Warn("command history unavailable", "path", cfg.Database.Path, "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}
	recorder := history.NewRecorder(store, historyDepth, log.Component("history"))
	defer recorder.Close()

	tel, err := telemetry.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
	case err != nil:
		log.Warn("telemetry unavailable", "url", cfg.InfluxDB.URL, "error", err)
	default:
		telLog := log.Component("telemetry")
		tel.SetOnError(func(err error) { telLog.Warn("telemetry write failed", "error", err) })
		defer tel.Close()
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:           cfg.MQTT.BrokerURL(),
		HTTPAddr:         cfg.HTTP.Addr,
		PulseMs:          driver.PulseDuration().Milliseconds(),
		ReconnectMs:      cfg.MQTT.ReconnectInterval.Milliseconds(),
		MaxDuty:          duty.MaxDuty(),
		HistoryEnabled:   store != nil,
		TelemetryEnabled: tel.IsConnected(),
	})
	tracker.Update(state.Report())
	tracker.SetNetwork(readNetworkInfo())

	commands := make(commandQueue)
	l := &loop{
		state:     state,
		driver:    driver,
		router:    router,
		publisher: publisher,
		inbox:     inbox,
		sup:       sup,
		tracker:   tracker,
		recorder:  recorder,
		telemetry: tel,
		blinker:   blinker,
		web:       commands,
		now:       time.Now,
		log:       log.Component("loop"),
	}

	if cfg.HTTP.Addr != "" {
		var hist web.HistorySource
		if store != nil {
			hist = store
		}
		srv := web.New(web.Options{
			Addr:     cfg.HTTP.Addr,
			Tracker:  tracker,
			Commands: commands,
			History:  hist,
			Username: cfg.HTTP.Username,
			Password: cfg.HTTP.Password,
			Logger:   log.Component("web"),
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		l.notifier = srv
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
	}

	log.Info("started",
		"broker", cfg.MQTT.BrokerURL(),
		"client_id", sup.ClientID(),
		"pins", cfg.Pumps.Pins,
		"active_low", cfg.Pumps.ActiveLow,
		"pulse", driver.PulseDuration(),
	)

	ticker := time.NewTicker(supervisorPoll)
	defer ticker.Stop()

	var blink <-chan time.Time
	if blinker != nil {
		bt := time.NewTicker(cfg.Indicator.BlinkInterval)
		defer bt.Stop()
		blink = bt.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(ticker.C, blink, sigCh)
}

func topicsFromConfig(t config.TopicsConfig) control.Topics {
	return control.Topics{
		Action:          t.Action,
		Intensity:       t.Intensity,
		Pump:            t.Pump,
		StatusAction:    t.StatusAction,
		StatusIntensity: t.StatusIntensity,
		StatusPump:      t.StatusPump,
	}
}

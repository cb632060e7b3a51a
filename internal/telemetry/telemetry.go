// Package telemetry writes pump metrics to InfluxDB.
//
// Writes are batched by the client library and never block the caller.
// When telemetry is disabled, Connect returns ErrDisabled and callers keep
// a nil *Client, whose methods are no-ops.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/control"
)

const (
	connectTimeout = 10 * time.Second

	// MeasurementPumpState is the measurement written for each applied
	// command.
	MeasurementPumpState = "pump_state"
)

var (
	ErrDisabled         = errors.New("telemetry: disabled in configuration")
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

// Client is an InfluxDB writer.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu        sync.RWMutex
	connected bool
	onError   func(error)
}

// Connect pings the server and prepares a non-blocking write API.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enable {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*1000))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		connected: true,
	}
	go c.handleWriteErrors(c.writeAPI.Errors())
	return c, nil
}

func (c *Client) handleWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		cb := c.onError
		c.mu.RUnlock()
		if cb != nil {
			cb(err)
		}
	}
}

// SetOnError registers a callback for asynchronous write failures.
func (c *Client) SetOnError(cb func(error)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.onError = cb
	c.mu.Unlock()
}

// IsConnected reports whether the client accepts writes.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// WritePumpState queues one pump_state point for the active pump.
func (c *Client) WritePumpState(r control.StatusReport, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(PumpStatePoint(r, at))
}

// Close flushes pending points and closes the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// PumpStatePoint builds the point written for r.
func PumpStatePoint(r control.StatusReport, at time.Time) *write.Point {
	running := 0
	if r.PumpState == control.PumpOn {
		running = 1
	}
	return write.NewPoint(
		MeasurementPumpState,
		map[string]string{"pump": strconv.Itoa(r.ActivePumpID)},
		map[string]interface{}{
			"action":    string(r.Action),
			"intensity": r.Intensity,
			"duty":      r.Duty,
			"running":   running,
		},
		at,
	)
}

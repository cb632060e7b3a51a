package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/control"
)

func report() control.StatusReport {
	st := control.NewState(map[int]int{1: 27, 2: 26})
	st.ActiveID = 2
	st.Channels[1].Current = control.PumpOn
	st.LastAction = control.ActionOn
	st.Intensity = 55
	st.Duty = 140
	return st.Report()
}

func TestPumpStatePoint(t *testing.T) {
	at := time.Unix(1717221600, 0)
	line := write.PointToLineProtocol(PumpStatePoint(report(), at), time.Second)

	for _, want := range []string{
		"pump_state,pump=2 ",
		`action="ON"`,
		"intensity=55i",
		"duty=140i",
		"running=1i",
		" 1717221600",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestConnectDisabled(t *testing.T) {
	c, err := Connect(context.Background(), config.InfluxDBConfig{Enable: false})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if c != nil {
		t.Error("expected nil client")
	}
	// A nil client is a no-op sink.
	c.WritePumpState(report(), time.Now())
	c.SetOnError(func(error) {})
	if c.IsConnected() {
		t.Error("nil client should not report connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// fakeInflux answers /ping and records write bodies.
type fakeInflux struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ping":
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, string(body))
		status := f.status
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.bodies, "\n")
}

func TestWritePumpStateReachesServer(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := Connect(context.Background(), config.InfluxDBConfig{
		Enable: true, URL: srv.URL, Token: "t", Org: "garden", Bucket: "irrigation",
		BatchSize: 10, FlushInterval: 1,
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatal("expected connected")
	}

	c.WritePumpState(report(), time.Now())
	c.Close()

	if got := fake.written(); !strings.Contains(got, "pump_state,pump=2") {
		t.Errorf("server received %q", got)
	}
	if c.IsConnected() {
		t.Error("expected disconnected after Close")
	}
}

func TestConnectUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Connect(ctx, config.InfluxDBConfig{Enable: true, URL: url})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("expected ErrConnectionFailed, got %v", err)
	}
}

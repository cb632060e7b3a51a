package mqtt

import (
	"sync"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logging"
)

// DefaultReconnectInterval is the fixed spacing between connect attempts.
const DefaultReconnectInterval = 5 * time.Second

// ConnState is the supervisor's view of the broker connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	ClientID string
	Topics   []string
	Interval time.Duration

	// Go runs a connect attempt. Defaults to starting a goroutine.
	Go func(func())
}

// Supervisor owns the connection lifecycle: it retries at a fixed interval,
// forever, and resubscribes to the command topics before reporting
// Connected.
//
// Tick, Connected and ReportFailure are called from the control loop.
// State may be read from any goroutine.
type Supervisor struct {
	client   Client
	clientID string
	topics   []string
	interval time.Duration
	spawn    func(func())
	log      *logging.Logger

	mu          sync.Mutex
	state       ConnState
	lastAttempt time.Time
	attempts    int
	connects    int

	result chan error
}

// NewSupervisor creates a Supervisor in the Disconnected state. No attempt
// is made until the first Tick.
func NewSupervisor(client Client, cfg SupervisorConfig, log *logging.Logger) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReconnectInterval
	}
	if cfg.Go == nil {
		cfg.Go = func(f func()) { go f() }
	}
	return &Supervisor{
		client:   client,
		clientID: cfg.ClientID,
		topics:   append([]string(nil), cfg.Topics...),
		interval: cfg.Interval,
		spawn:    cfg.Go,
		log:      log,
		result:   make(chan error, 1),
	}
}

// ClientID returns the identity presented to the broker.
func (s *Supervisor) ClientID() string {
	return s.clientID
}

// State returns the current connection state.
func (s *Supervisor) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether publishing is currently allowed.
func (s *Supervisor) Connected() bool {
	return s.State() == Connected
}

// Attempts returns the total number of connect attempts started.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Tick advances the state machine and never blocks. It returns true when a
// connection was established during this call.
//
// While Disconnected, an attempt is started if none has been made in the
// last interval. Connect and resubscribe run off the caller's goroutine;
// their outcome is collected by a later Tick (or this one, if already
// finished).
func (s *Supervisor) Tick(now time.Time) bool {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case Connected:
		if s.client.IsConnected() {
			return false
		}
		s.setState(Disconnected)
		s.log.Warn("broker connection lost, will retry", "interval", s.interval)
	case Connecting:
		return s.collect()
	}

	s.mu.Lock()
	due := s.lastAttempt.IsZero() || now.Sub(s.lastAttempt) >= s.interval
	if due {
		s.state = Connecting
		s.lastAttempt = now
		s.attempts++
	}
	attempt := s.attempts
	s.mu.Unlock()
	if !due {
		return false
	}

	s.log.Info("connecting to broker", "client_id", s.clientID, "attempt", attempt)
	s.spawn(s.connect)
	return s.collect()
}

// ReportFailure marks a Connected session as lost after a failed publish.
// The next attempt follows the normal interval.
func (s *Supervisor) ReportFailure(err error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return
	}
	s.state = Disconnected
	s.mu.Unlock()
	s.log.Warn("transport failure, marking disconnected", "error", err)
}

// Close disconnects from the broker.
func (s *Supervisor) Close() {
	s.client.Disconnect()
	s.setState(Disconnected)
}

func (s *Supervisor) connect() {
	if err := s.client.Connect(s.clientID); err != nil {
		s.result <- err
		return
	}
	if err := s.client.Subscribe(s.topics); err != nil {
		s.client.Disconnect()
		s.result <- err
		return
	}
	s.result <- nil
}

// collect consumes a finished attempt, if any.
func (s *Supervisor) collect() bool {
	select {
	case err := <-s.result:
		if err != nil {
			s.setState(Disconnected)
			s.log.Warn("broker connect failed, will retry", "error", err, "interval", s.interval)
			return false
		}
		s.mu.Lock()
		s.state = Connected
		s.connects++
		n := s.connects
		s.mu.Unlock()
		s.log.Info("connected to broker", "client_id", s.clientID, "topics", s.topics, "sessions", n)
		return true
	default:
		return false
	}
}

func (s *Supervisor) setState(state ConnState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/irrigation-controller/internal/logging"
)

// Timeouts for broker operations. Connect runs off the control loop;
// publish runs on it, so its bound keeps a dead broker from stalling
// commands for long.
const (
	connectTimeout    = 10 * time.Second
	subscribeTimeout  = 5 * time.Second
	publishTimeout    = 2 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// PahoOptions configures a PahoClient.
type PahoOptions struct {
	BrokerURL string
	Username  string
	Password  string
	QoS       byte
	KeepAlive time.Duration
}

// PahoClient is a Client backed by the Eclipse Paho library. Automatic
// reconnection is disabled: the Supervisor decides when to retry.
type PahoClient struct {
	opts  PahoOptions
	inbox *Inbox
	log   *logging.Logger

	mu     sync.Mutex
	client paho.Client
}

// NewPahoClient creates a client that delivers inbound messages to inbox.
func NewPahoClient(opts PahoOptions, inbox *Inbox, log *logging.Logger) *PahoClient {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 30 * time.Second
	}
	return &PahoClient{opts: opts, inbox: inbox, log: log}
}

// Connect opens a new session. Any previous session is torn down first.
func (c *PahoClient) Connect(clientID string) error {
	c.mu.Lock()
	old := c.client
	c.mu.Unlock()
	if old != nil && old.IsConnectionOpen() {
		old.Disconnect(disconnectQuiesce)
	}

	opts := paho.NewClientOptions().
		AddBroker(c.opts.BrokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(true).
		SetKeepAlive(c.opts.KeepAlive).
		SetConnectTimeout(connectTimeout).
		SetDefaultPublishHandler(c.deliver).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("broker connection lost", "error", err)
		})
	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %s", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

// Subscribe registers topics at the configured QoS.
func (c *PahoClient) Subscribe(topics []string) error {
	client := c.current()
	if client == nil {
		return ErrNotConnected
	}
	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = c.opts.QoS
	}
	token := client.SubscribeMultiple(filters, c.deliver)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("%w: timeout", ErrSubscribeFailed)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	return nil
}

// Publish sends payload on topic, not retained.
func (c *PahoClient) Publish(topic string, payload []byte) error {
	client := c.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := client.Publish(topic, c.opts.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublishFailed, topic, err)
	}
	return nil
}

// IsConnected reports whether the session is open.
func (c *PahoClient) IsConnected() bool {
	client := c.current()
	return client != nil && client.IsConnectionOpen()
}

// Disconnect closes the session if one is open.
func (c *PahoClient) Disconnect() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client != nil && client.IsConnected() {
		client.Disconnect(disconnectQuiesce)
	}
}

func (c *PahoClient) current() paho.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

func (c *PahoClient) deliver(_ paho.Client, m paho.Message) {
	c.inbox.Push(Message{Topic: m.Topic(), Payload: string(m.Payload())})
}

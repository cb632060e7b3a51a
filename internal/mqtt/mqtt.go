// Package mqtt provides the broker transport, the inbound command inbox and
// the connectivity supervisor that owns the connection lifecycle.
package mqtt

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors. Transport failures wrap one of these.
var (
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
)

// Message is one inbound command as delivered by the broker.
type Message struct {
	Topic   string
	Payload string
}

// Client is the transport the Supervisor drives.
//
// Connect and Subscribe may block for a bounded time; the Supervisor never
// calls them from the control loop.
type Client interface {
	// Connect opens a session using clientID.
	Connect(clientID string) error

	// Subscribe registers the command topics. Messages arriving on them are
	// delivered to the client's inbox.
	Subscribe(topics []string) error

	// Publish sends one message.
	Publish(topic string, payload []byte) error

	// IsConnected reports whether the underlying session is up.
	IsConnected() bool

	// Disconnect closes the session.
	Disconnect()
}

// NewClientID returns prefix followed by eight random hex digits, so every
// boot presents a distinct identity to the broker.
func NewClientID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix == "" {
		return suffix
	}
	return prefix + "-" + suffix
}

package control

import "github.com/sweeney/irrigation-controller/internal/logging"

// Transport sends one message on the outbound channel.
type Transport interface {
	Publish(topic string, payload []byte) error
}

// Connectivity gates publication on the transport's connection state.
type Connectivity interface {
	// Connected reports whether the transport is usable.
	Connected() bool
	// ReportFailure tells the owner of the connection that a publish failed.
	ReportFailure(err error)
}

// Publisher emits status messages. Messages are never queued or retried:
// while disconnected they are dropped, and a rejected publish is lost. The
// next state change republishes current truth.
type Publisher struct {
	transport Transport
	conn      Connectivity
	log       *logging.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(transport Transport, conn Connectivity, log *logging.Logger) *Publisher {
	return &Publisher{transport: transport, conn: conn, log: log}
}

// Publish sends msgs in order and returns how many were accepted by the
// transport. It stops at the first failure, since the connection is then
// considered lost.
func (p *Publisher) Publish(msgs []Message) int {
	if len(msgs) == 0 {
		return 0
	}
	if !p.conn.Connected() {
		p.log.Debug("not connected, dropping status", "messages", len(msgs))
		return 0
	}

	sent := 0
	for _, m := range msgs {
		if err := p.transport.Publish(m.Topic, []byte(m.Payload)); err != nil {
			p.log.Warn("status publish failed", "topic", m.Topic, "error", err)
			p.conn.ReportFailure(err)
			return sent
		}
		sent++
	}
	return sent
}

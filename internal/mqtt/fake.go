package mqtt

import "sync"

// Published is one message recorded by FakeClient.
type Published struct {
	Topic   string
	Payload string
}

// FakeClient records calls for test assertions. It is safe for use from
// the Supervisor's connect goroutine.
type FakeClient struct {
	mu sync.Mutex

	// ConnectErr, SubscribeErr and PublishErr, if set, are returned by the
	// matching method.
	ConnectErr   error
	SubscribeErr error
	PublishErr   error

	// ClientIDs holds the id passed to every Connect call.
	ClientIDs []string

	// Subscriptions holds the topic list of every Subscribe call.
	Subscriptions [][]string

	// Published holds every accepted publish.
	Published []Published

	// Calls is the ordered log of method names.
	Calls []string

	// Inbox receives messages passed to Deliver.
	Inbox *Inbox

	connected bool
}

// NewFakeClient creates a FakeClient delivering to inbox (may be nil).
func NewFakeClient(inbox *Inbox) *FakeClient {
	return &FakeClient{Inbox: inbox}
}

// Connect records the attempt.
func (f *FakeClient) Connect(clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "connect")
	f.ClientIDs = append(f.ClientIDs, clientID)
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.connected = true
	return nil
}

// Subscribe records the topics.
func (f *FakeClient) Subscribe(topics []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "subscribe")
	if f.SubscribeErr != nil {
		return f.SubscribeErr
	}
	f.Subscriptions = append(f.Subscriptions, append([]string(nil), topics...))
	return nil
}

// Publish records the message.
func (f *FakeClient) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "publish")
	if !f.connected {
		return ErrNotConnected
	}
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, Published{Topic: topic, Payload: string(payload)})
	return nil
}

// IsConnected reports the simulated session state.
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Disconnect records the call and drops the session.
func (f *FakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "disconnect")
	f.connected = false
}

// Drop simulates the broker closing the session.
func (f *FakeClient) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

// Deliver simulates an inbound message.
func (f *FakeClient) Deliver(topic, payload string) bool {
	if f.Inbox == nil {
		return false
	}
	return f.Inbox.Push(Message{Topic: topic, Payload: payload})
}

// ConnectCount returns the number of Connect calls.
func (f *FakeClient) ConnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ClientIDs)
}

// PublishedMessages returns a copy of the accepted publishes.
func (f *FakeClient) PublishedMessages() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.Published...)
}

// SetConnectErr sets ConnectErr under the lock.
func (f *FakeClient) SetConnectErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectErr = err
}

// SetPublishErr sets PublishErr under the lock.
func (f *FakeClient) SetPublishErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PublishErr = err
}

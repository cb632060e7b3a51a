package mqtt

import (
	"sync"

	"github.com/sweeney/irrigation-controller/internal/logging"
)

// Inbox is a fixed-capacity FIFO of inbound commands. The transport pushes
// from its own goroutines; the control loop pops one message per
// iteration. When full, the newest message is dropped so commands already
// queued keep their arrival order.
type Inbox struct {
	mu       sync.Mutex
	buf      []Message
	capacity int
	head     int // next read position
	count    int
	dropped  uint64
	overflow bool // true while full, so the drop is logged once per episode

	notify chan struct{}
	log    *logging.Logger
}

// NewInbox creates an Inbox holding at most capacity messages.
func NewInbox(capacity int, log *logging.Logger) *Inbox {
	if capacity < 1 {
		capacity = 1
	}
	return &Inbox{
		buf:      make([]Message, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		log:      log,
	}
}

// Push appends msg. It returns false if the inbox was full and msg was
// dropped.
func (b *Inbox) Push(msg Message) bool {
	b.mu.Lock()
	if b.count == b.capacity {
		b.dropped++
		first := !b.overflow
		b.overflow = true
		b.mu.Unlock()
		if first {
			b.log.Warn("inbox full, dropping newest command", "capacity", b.capacity, "topic", msg.Topic)
		}
		return false
	}
	b.buf[(b.head+b.count)%b.capacity] = msg
	b.count++
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes and returns the oldest message.
func (b *Inbox) Pop() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return Message{}, false
	}
	msg := b.buf[b.head]
	b.buf[b.head] = Message{}
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.overflow = false
	return msg, true
}

// Len returns the number of queued messages.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns how many messages were rejected because the inbox was full.
func (b *Inbox) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Ready is signalled after a Push. A single signal may cover several
// messages, so receivers should Pop until empty or until they have done
// their per-iteration share of work and then re-check Len.
func (b *Inbox) Ready() <-chan struct{} {
	return b.notify
}

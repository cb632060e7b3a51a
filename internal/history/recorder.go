package history

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logging"
)

const writeTimeout = 2 * time.Second

// Recorder writes entries to a Store from its own goroutine so the control
// loop never waits on disk. Entries submitted while the queue is full are
// dropped and logged.
type Recorder struct {
	store *Store
	queue chan Entry
	log   *logging.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewRecorder starts a Recorder with room for depth pending entries.
// A nil store yields a Recorder that discards everything.
func NewRecorder(store *Store, depth int, log *logging.Logger) *Recorder {
	if depth < 1 {
		depth = 1
	}
	r := &Recorder{
		store: store,
		queue: make(chan Entry, depth),
		log:   log,
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues e without blocking.
func (r *Recorder) Record(e Entry) {
	if r == nil || r.store == nil {
		return
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.log.Warn("history queue full, dropping entry", "topic", e.Topic)
	}
}

// Close flushes queued entries and stops the writer. It does not close
// the Store.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		if r.store == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if _, err := r.store.Record(ctx, e); err != nil {
			r.log.Warn("history write failed", "error", err)
		}
		cancel()
	}
}

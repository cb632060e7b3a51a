package mqtt

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sweeney/irrigation-controller/internal/logging"
)

func TestInboxEmptyPop(t *testing.T) {
	b := NewInbox(4, logging.Discard())
	if _, ok := b.Pop(); ok {
		t.Error("expected Pop on empty inbox to fail")
	}
}

func TestInboxFIFO(t *testing.T) {
	b := NewInbox(10, logging.Discard())
	for i := 0; i < 5; i++ {
		b.Push(Message{Topic: "t", Payload: fmt.Sprint(i)})
	}
	if b.Len() != 5 {
		t.Fatalf("Len = %d, want 5", b.Len())
	}
	for i := 0; i < 5; i++ {
		msg, ok := b.Pop()
		if !ok {
			t.Fatalf("Pop %d failed", i)
		}
		if msg.Payload != fmt.Sprint(i) {
			t.Errorf("item %d: got payload %q", i, msg.Payload)
		}
	}
	if b.Len() != 0 {
		t.Errorf("Len after drain = %d", b.Len())
	}
}

func TestInboxDropsNewestWhenFull(t *testing.T) {
	b := NewInbox(3, logging.Discard())
	for i := 0; i < 5; i++ {
		ok := b.Push(Message{Payload: fmt.Sprint(i)})
		if want := i < 3; ok != want {
			t.Errorf("Push %d = %v, want %v", i, ok, want)
		}
	}
	if b.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", b.Dropped())
	}
	for i := 0; i < 3; i++ {
		msg, _ := b.Pop()
		if msg.Payload != fmt.Sprint(i) {
			t.Errorf("item %d: got %q, the oldest messages must survive", i, msg.Payload)
		}
	}
}

func TestInboxWrapAround(t *testing.T) {
	b := NewInbox(3, logging.Discard())
	next := 0
	want := 0
	for round := 0; round < 10; round++ {
		b.Push(Message{Payload: fmt.Sprint(next)})
		next++
		b.Push(Message{Payload: fmt.Sprint(next)})
		next++
		for i := 0; i < 2; i++ {
			msg, ok := b.Pop()
			if !ok || msg.Payload != fmt.Sprint(want) {
				t.Fatalf("round %d: got %q (ok=%v), want %d", round, msg.Payload, ok, want)
			}
			want++
		}
	}
}

func TestInboxReadySignal(t *testing.T) {
	b := NewInbox(4, logging.Discard())
	b.Push(Message{Payload: "a"})
	b.Push(Message{Payload: "b"})

	select {
	case <-b.Ready():
	default:
		t.Fatal("expected ready signal after push")
	}
	// Signals coalesce.
	select {
	case <-b.Ready():
		t.Fatal("expected a single coalesced signal")
	default:
	}
}

func TestInboxConcurrentPush(t *testing.T) {
	b := NewInbox(1000, logging.Discard())
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.Push(Message{Topic: "t"})
			}
		}()
	}
	wg.Wait()
	if b.Len() != 500 {
		t.Errorf("Len = %d, want 500", b.Len())
	}
}

func TestInboxMinimumCapacity(t *testing.T) {
	b := NewInbox(0, logging.Discard())
	if !b.Push(Message{Payload: "x"}) {
		t.Fatal("capacity should be at least 1")
	}
	if b.Push(Message{Payload: "y"}) {
		t.Error("second push should be dropped")
	}
}

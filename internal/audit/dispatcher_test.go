package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
}

func (s *recordingSink) Emit(e Event) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 16, true)

	for i := 0; i < 5; i++ {
		d.Publish(Event{Kind: "login.success", SubjectID: string(rune('a' + i))})
	}
	d.Close()

	if sink.count() != 5 {
		t.Fatalf("delivered %d events, want 5", sink.count())
	}
	for i, e := range sink.events {
		if e.SubjectID != string(rune('a'+i)) {
			t.Fatalf("event %d out of order: %+v", i, e)
		}
	}
	if d.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", d.Dropped())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 2, true)

	// First event occupies the worker, next two fill the buffer, the
	// rest must be dropped.
	for i := 0; i < 10; i++ {
		d.Publish(Event{Kind: "login.failure"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}

	close(sink.block)
	d.Close()

	if got := int(d.Dropped()) + sink.count(); got != 10 {
		t.Fatalf("dropped+delivered = %d, want 10", got)
	}
}

func TestDispatcherCloseDrains(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 64, true)

	for i := 0; i < 50; i++ {
		d.Publish(Event{Kind: "session.signed_out"})
	}
	d.Close()

	if sink.count() != 50 {
		t.Fatalf("delivered %d events after Close, want 50", sink.count())
	}

	// Publishing after Close drops silently.
	d.Publish(Event{Kind: "late"})
	if d.Dropped() != 1 {
		t.Fatalf("Dropped() = %d after late publish, want 1", d.Dropped())
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(Event{Kind: "first"})
	sink.Emit(Event{Kind: "second"})

	select {
	case e := <-sink.Events():
		if e.Kind != "first" {
			t.Fatalf("got %q, want first", e.Kind)
		}
	default:
		t.Fatal("expected one buffered event")
	}
	select {
	case e := <-sink.Events():
		t.Fatalf("unexpected second event: %+v", e)
	default:
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(Event{
		EventID:   "e-1",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Kind:      "login.success",
		SubjectID: "u1",
	})
	sink.Emit(Event{EventID: "e-2", Kind: "session.signed_out"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if decoded.Kind != "login.success" || decoded.SubjectID != "u1" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

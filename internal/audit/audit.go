package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event is a single audit record. Code or tokens never appear in an
// Event; only identifiers and outcomes do.
type Event struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"ts"`
	Kind      string            `json:"kind"`
	SubjectID string            `json:"subject_id,omitempty"`
	Surface   string            `json:"surface,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Sink receives audit events from the dispatcher. Emit must be safe for
// concurrent use and should return quickly; slow sinks cause drops when
// the dispatcher buffer fills.
type Sink interface {
	Emit(e Event)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(Event) {}

// ChannelSink forwards events to a Go channel, dropping when the
// channel is full.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Events exposes the receiving side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

func (s *ChannelSink) Emit(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

// JSONWriterSink writes one JSON object per line to an io.Writer. A
// mutex serializes writes so lines never interleave.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONWriterSink creates a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{w: w}
}

func (s *JSONWriterSink) Emit(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(data)
}

package audit

import (
	"sync"
	"sync/atomic"
)

// Dispatcher decouples audit emission from the auth flows. Events are
// queued on a buffered channel and delivered by a single worker
// goroutine, so a slow sink can never block login or resolution.
type Dispatcher struct {
	sink       Sink
	ch         chan Event
	dropIfFull bool
	dropped    uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher starts the delivery worker. A nil sink disables
// dispatch entirely and Publish becomes a no-op.
func NewDispatcher(sink Sink, buffer int, dropIfFull bool) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &Dispatcher{
		sink:       sink,
		ch:         make(chan Event, buffer),
		dropIfFull: dropIfFull,
		done:       make(chan struct{}),
	}
	if sink == nil {
		d.sink = NoOpSink{}
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.ch {
		d.sink.Emit(e)
	}
}

// Publish enqueues an event. When the buffer is full the event is
// either dropped (counting the drop) or delivered synchronously,
// depending on the dropIfFull policy.
func (d *Dispatcher) Publish(e Event) {
	if d == nil {
		return
	}
	defer func() {
		// Publishing after Close loses the event but must not panic the
		// caller's flow.
		if recover() != nil {
			atomic.AddUint64(&d.dropped, 1)
		}
	}()

	if d.dropIfFull {
		select {
		case d.ch <- e:
		default:
			atomic.AddUint64(&d.dropped, 1)
		}
		return
	}
	d.ch <- e
}

// Dropped reports how many events were discarded because the buffer was
// full or the dispatcher was closed.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return atomic.LoadUint64(&d.dropped)
}

// Close stops intake and waits for buffered events to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.ch)
	})
	<-d.done
}

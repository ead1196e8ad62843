package exam

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-cat/internal/platform/logger"
)

// Lifecycle event types.
const (
	EventStarted   = "session.started"
	EventAnswered  = "session.answered"
	EventPaused    = "session.paused"
	EventResumed   = "session.resumed"
	EventCompleted = "session.completed"
)

// Event describes a session state change. Payload is plain data
// (Response, Snapshot or TestResult) so sinks can serialize it directly.
// Seq numbers a session's events from 1 in the order they happened.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	Owner     string    `json:"owner,omitempty"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// EventSink receives lifecycle events. Publish may block on I/O; the engine
// never calls it while holding a session lock.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher decouples the engine from slow sinks. A fixed set of workers
// drains the buffer into the sink; Emit only waits on the sink when it has
// to deliver a completion inline.
type Dispatcher struct {
	sink    EventSink
	log     *logger.Logger
	workers int
	ch      chan Event
	timeout time.Duration

	mu      sync.Mutex
	dropped int
}

func NewDispatcher(sink EventSink, workers, buffer int, log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		sink:    sink,
		log:     log,
		workers: workers,
		ch:      make(chan Event, buffer),
		timeout: 10 * time.Second,
	}
}

// Emit queues ev and reports false if the buffer was full and ev was
// dropped. A completion event is never dropped: it carries the result the
// archive is built from, so with a full buffer it is delivered inline.
func (d *Dispatcher) Emit(ev Event) bool {
	select {
	case d.ch <- ev:
		return true
	default:
		if ev.Type == EventCompleted {
			d.log.Warn("event buffer full, delivering inline", "type", ev.Type, "session_id", ev.SessionID)
			d.deliver(ev)
			return true
		}
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		d.log.Warn("event dropped", "type", ev.Type, "session_id", ev.SessionID)
		return false
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Run delivers events until ctx is cancelled, then flushes whatever is
// still buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					d.drain()
					return
				case ev := <-d.ch:
					d.deliver(ev)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.sink.Publish(ctx, ev); err != nil {
		d.log.Error("event sink failed", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}

package exam

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}
func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (f *tickerFactory) New(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time)}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

func (f *tickerFactory) last() *manualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

func (f *tickerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func timedEngine(t *testing.T, clock *stepClock, opts ...Option) (*Engine, *Session) {
	t.Helper()
	var items []itembank.Item
	for i, d := range itembank.Bands {
		items = append(items, itembank.Item{ID: string(d), Category: "math", Difficulty: d, Options: []string{"a", "b"}, CorrectOptionIndex: i % 2})
	}
	base := []Option{WithRand(rand.New(rand.NewSource(1))), WithClock(clock.Now)}
	e := NewEngine(itembank.NewMemoryBank(items...), append(base, opts...)...)
	snap, err := e.Start(context.Background(), "u", TestConfiguration{Categories: []string{"math"}, ItemCount: 3, Mode: ModeTimed, TimeLimitSeconds: 10})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	s, err := e.store.Get(snap.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return e, s
}

func remaining(e *Engine, s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(e.clock())
}

func status(s *Session) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func TestStaleEpochTickIsIgnored(t *testing.T) {
	clock := &stepClock{now: time.Unix(1000, 0)}
	e, s := timedEngine(t, clock, WithTicker(nil))

	s.mu.Lock()
	old := s.epoch
	s.mu.Unlock()

	if err := e.Pause(s.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.Resume(s.ID); err != nil {
		t.Fatal(err)
	}
	clock.advance(10 * time.Second)
	if e.tick(s, old) {
		t.Fatal("stale tick reported the timer as still running")
	}
	if st := status(s); st != StatusActive {
		t.Fatalf("stale tick changed status to %s", st)
	}

	s.mu.Lock()
	cur := s.epoch
	s.mu.Unlock()
	if e.tick(s, cur) {
		t.Fatal("expired countdown left the timer running")
	}
	if st := status(s); st != StatusCompleted {
		t.Fatalf("current tick did not complete the session, status %s", st)
	}
}

func TestBackgroundTickerCountsDownAndStops(t *testing.T) {
	clock := &stepClock{now: time.Unix(1000, 0)}
	f := &tickerFactory{}
	e, s := timedEngine(t, clock, WithTicker(f.New))
	if f.count() != 1 {
		t.Fatalf("want one ticker after start, got %d", f.count())
	}
	tk := f.last()
	for i := 0; i < 3; i++ {
		clock.advance(time.Second)
		tk.ch <- clock.Now()
	}
	if got := remaining(e, s); got != 7 {
		t.Fatalf("remaining %d want 7", got)
	}

	if err := e.Pause(s.ID); err != nil {
		t.Fatal(err)
	}
	if !tk.isStopped() {
		t.Fatal("pause did not stop the ticker")
	}
	clock.advance(time.Minute)
	if err := e.Resume(s.ID); err != nil {
		t.Fatal(err)
	}
	if f.count() != 2 {
		t.Fatalf("resume should start a fresh ticker, have %d", f.count())
	}
	if got := remaining(e, s); got != 7 {
		t.Fatalf("paused time was counted, remaining %d", got)
	}

	next := f.last()
	for i := 0; i < 7; i++ {
		clock.advance(time.Second)
		next.ch <- clock.Now()
	}
	deadline := time.Now().Add(2 * time.Second)
	for status(s) != StatusCompleted {
		if time.Now().After(deadline) {
			t.Fatalf("session not completed by countdown, status %s", status(s))
		}
		time.Sleep(time.Millisecond)
	}
	if !next.isStopped() {
		t.Fatal("completion did not stop the ticker")
	}
	res, err := e.Result(context.Background(), s.ID)
	if err != nil || res.Reason != ReasonTimeout || res.TimeSpentSeconds != 10 {
		t.Fatalf("result %+v err %v", res, err)
	}
}

func TestStopwatchExcludesPausedTime(t *testing.T) {
	t0 := time.Unix(0, 0)
	var w stopwatch
	w.start(t0)
	w.stop(t0.Add(5 * time.Second))
	w.stop(t0.Add(9 * time.Second))
	w.start(t0.Add(20 * time.Second))
	if got := seconds(w.elapsed(t0.Add(23 * time.Second))); got != 8 {
		t.Fatalf("elapsed %d want 8", got)
	}
	w.reset(t0.Add(30*time.Second), false)
	if got := w.elapsed(t0.Add(40 * time.Second)); got != 0 {
		t.Fatalf("reset stopwatch reports %v", got)
	}
}

package exam

import (
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the session timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// stopwatch accumulates running time across pause/resume.
type stopwatch struct {
	acc     time.Duration
	since   time.Time
	running bool
}

func (w *stopwatch) start(now time.Time) {
	if w.running {
		return
	}
	w.since = now
	w.running = true
}

func (w *stopwatch) stop(now time.Time) {
	if !w.running {
		return
	}
	w.acc += now.Sub(w.since)
	w.running = false
}

func (w *stopwatch) reset(now time.Time, running bool) {
	w.acc = 0
	w.running = false
	if running {
		w.start(now)
	}
}

func (w *stopwatch) elapsed(now time.Time) time.Duration {
	if w.running {
		return w.acc + now.Sub(w.since)
	}
	return w.acc
}

func seconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

// startTimerLocked begins the per-second countdown checks for a timed
// session. Each start bumps the session epoch; a tick carrying an older
// epoch is ignored, so a stopped timer can never touch the session again.
// The caller holds s.mu.
func (e *Engine) startTimerLocked(s *Session) {
	e.stopTimerLocked(s)
	if s.config.Mode != ModeTimed || e.newTicker == nil {
		return
	}
	epoch := s.epoch
	t := e.newTicker(time.Second)
	done := make(chan struct{})
	var once sync.Once
	s.stopTimer = func() {
		once.Do(func() {
			close(done)
			t.Stop()
		})
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C():
				if !e.tick(s, epoch) {
					return
				}
			}
		}
	}()
}

// stopTimerLocked cancels the running countdown, if any. The caller holds s.mu.
func (e *Engine) stopTimerLocked(s *Session) {
	s.epoch++
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
}

// tick re-evaluates the countdown if epoch is still current. It returns
// false once the timer that produced the tick should exit.
func (e *Engine) tick(s *Session, epoch uint64) bool {
	s.mu.Lock()
	if s.epoch != epoch || s.status != StatusActive || s.config.Mode != ModeTimed {
		s.mu.Unlock()
		return false
	}
	var evs []Event
	if s.expiredLocked(e.clock()) {
		evs = e.completeLocked(s, ReasonTimeout)
	}
	running := s.status == StatusActive
	s.mu.Unlock()

	e.emit(evs...)
	return running
}

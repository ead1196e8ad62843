package exam

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-cat/internal/grading"
	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/platform/logger"
	"github.com/mind-engage/mindengage-cat/internal/scoring"
)

var (
	ErrNotActive        = errors.New("session is not active")
	ErrNotCompleted     = errors.New("session is not completed")
	ErrResponseNotFound = errors.New("response not found")
)

// Emitter accepts lifecycle events without blocking. *Dispatcher is the
// production implementation.
type Emitter interface {
	Emit(ev Event) bool
}

// ResultLookup finds results of sessions that are no longer held in memory.
type ResultLookup interface {
	LoadResult(ctx context.Context, sessionID string) (TestResult, string, error)
}

// Engine runs every session. Sessions share only the selector and the
// bank; each one serializes its own transitions.
type Engine struct {
	bank      itembank.Gateway
	selector  *Selector
	store     *Store
	rng       *rand.Rand
	clock     func() time.Time
	newTicker TickerFunc
	events    Emitter
	archive   ResultLookup
	log       *logger.Logger
	retention time.Duration
}

type Option func(*Engine)

// WithRand makes item selection reproducible.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.clock = now } }

// WithTicker replaces the per-second ticker. nil disables the background
// countdown; callers then drive it through Engine.Tick.
func WithTicker(f TickerFunc) Option { return func(e *Engine) { e.newTicker = f } }

func WithEvents(em Emitter) Option { return func(e *Engine) { e.events = em } }

func WithArchive(a ResultLookup) Option { return func(e *Engine) { e.archive = a } }

func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithRetention sets how long completed sessions stay in memory.
func WithRetention(d time.Duration) Option { return func(e *Engine) { e.retention = d } }

func NewEngine(bank itembank.Gateway, opts ...Option) *Engine {
	e := &Engine{
		bank:      bank,
		store:     NewStore(),
		clock:     time.Now,
		newTicker: NewRealTicker,
		log:       logger.Nop(),
		retention: 24 * time.Hour,
	}
	for _, o := range opts {
		o(e)
	}
	e.selector = NewSelector(bank, e.rng)
	return e
}

// Start validates cfg, presents the first item and returns the initial
// snapshot. Nothing is stored if no item can be presented.
func (e *Engine) Start(ctx context.Context, owner string, cfg TestConfiguration) (Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return Snapshot{}, err
	}
	cfg.Categories = normalizeCategories(cfg.Categories)
	cats := cfg.Categories
	if cfg.wantsAll() {
		all, err := e.bank.Categories(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("expand categories: %w", err)
		}
		if len(all) == 0 {
			return Snapshot{}, fmt.Errorf("%w: bank has no categories", itembank.ErrExhausted)
		}
		cats = normalizeCategories(all)
	}

	now := e.clock()
	s := newSession(uuid.NewString(), owner, cfg, cats, now)
	first, err := e.selector.SelectNext(ctx, cats, s.ability.Theta, nil, "")
	if err != nil {
		return Snapshot{}, fmt.Errorf("select first item: %w", err)
	}

	s.mu.Lock()
	s.status = StatusActive
	s.elapsed.start(now)
	s.presentLocked(first, now)
	e.startTimerLocked(s)
	snap := s.snapshotLocked(now)
	started := s.eventLocked(EventStarted, now, snap)
	s.mu.Unlock()

	e.store.Put(s)
	e.log.Debug("session started", "session_id", s.ID, "mode", cfg.Mode, "items", cfg.ItemCount)
	e.emit(started)
	return snap, nil
}

// SubmitAnswer grades option against the current item. The next item is
// fetched without holding the session lock; if the session completed in
// the meantime the answer is discarded. A gateway failure leaves the
// session exactly as it was so the caller can retry.
func (e *Engine) SubmitAnswer(ctx context.Context, id string, option int) (AnswerOutcome, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return AnswerOutcome{}, err
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.status == StatusCompleted {
		out := completedOutcome(s)
		out.Discarded = true
		s.mu.Unlock()
		return out, nil
	}
	if s.status != StatusActive || s.current == nil {
		st := s.status
		s.mu.Unlock()
		return AnswerOutcome{}, fmt.Errorf("%w: status %s", ErrNotActive, st)
	}
	now := e.clock()
	if s.expiredLocked(now) {
		evs := e.completeLocked(s, ReasonTimeout)
		out := completedOutcome(s)
		out.Discarded = true
		s.mu.Unlock()
		e.emit(evs...)
		return out, nil
	}
	item := *s.current
	graded, err := grading.Grade(item, option)
	if err != nil {
		s.mu.Unlock()
		return AnswerOutcome{}, err
	}
	resp := Response{
		ItemID:            item.ID,
		ChosenOptionIndex: option,
		IsCorrect:         graded.Correct,
		Difficulty:        item.Difficulty,
		Category:          item.Category,
		Subcategory:       item.Subcategory,
		TimeSpentSeconds:  seconds(s.itemClock.elapsed(now)),
		Flagged:           s.currentFlagged,
		AnsweredAt:        now,
	}

	if reason, stop := ShouldStop(StopCheck{
		Answered:         len(s.responses) + 1,
		ItemCount:        s.config.ItemCount,
		Mode:             s.config.Mode,
		RemainingSeconds: s.remainingLocked(now),
	}); stop {
		s.commitLocked(resp)
		evs := []Event{answered(s, resp)}
		evs = append(evs, e.completeLocked(s, reason)...)
		out := completedOutcome(s)
		reveal(&out, s, graded)
		s.mu.Unlock()
		e.emit(evs...)
		return out, nil
	}

	cats := s.categories
	exclude := s.askedCopyLocked()
	theta := nextTheta(s, resp)
	s.mu.Unlock()

	next, fetchErr := e.selector.SelectNext(ctx, cats, theta, exclude, item.Category)

	s.mu.Lock()
	if s.status == StatusCompleted {
		out := completedOutcome(s)
		out.Discarded = true
		s.mu.Unlock()
		return out, nil
	}
	var evs []Event
	var out AnswerOutcome
	switch {
	case errors.Is(fetchErr, itembank.ErrExhausted):
		s.commitLocked(resp)
		evs = append(evs, answered(s, resp))
		evs = append(evs, e.completeLocked(s, ReasonBankExhausted)...)
		out = completedOutcome(s)
	case fetchErr != nil:
		s.mu.Unlock()
		e.log.Warn("next item fetch failed", "session_id", id, "error", fetchErr)
		return AnswerOutcome{}, fetchErr
	default:
		s.commitLocked(resp)
		evs = append(evs, answered(s, resp))
		s.presentLocked(next, e.clock())
		out = AnswerOutcome{NextItem: viewOf(next)}
	}
	reveal(&out, s, graded)
	s.mu.Unlock()

	e.emit(evs...)
	return out, nil
}

// nextTheta is the estimate the session will hold once resp is committed.
func nextTheta(s *Session, resp Response) float64 {
	hist := append(outcomes(s.responses), outcomes([]Response{resp})...)
	return scoring.EstimateAbility(hist).Theta
}

func answered(s *Session, r Response) Event {
	return s.eventLocked(EventAnswered, r.AnsweredAt, r)
}

func completedOutcome(s *Session) AnswerOutcome {
	out := AnswerOutcome{Completed: true, Reason: s.reason}
	if s.result != nil {
		r := s.result.clone()
		out.Result = &r
	}
	return out
}

// reveal fills immediate feedback for tutorial sessions.
func reveal(out *AnswerOutcome, s *Session, g grading.Result) {
	if s.config.Mode != ModeTutorial {
		return
	}
	c, idx := g.Correct, g.CorrectOption
	out.Correct = &c
	out.CorrectOption = &idx
}

// completeLocked moves s to Completed and freezes its clocks. It is a no-op
// on an already completed session. The caller holds s.mu and must emit the
// returned events after unlocking.
func (e *Engine) completeLocked(s *Session, reason Reason) []Event {
	if s.status == StatusCompleted {
		return nil
	}
	now := e.clock()
	e.stopTimerLocked(s)
	s.elapsed.stop(now)
	s.itemClock.stop(now)
	s.status = StatusCompleted
	s.reason = reason
	s.completedAt = now
	s.current = nil
	s.currentFlagged = false
	r := s.buildResultLocked(now)
	s.result = &r
	e.log.Debug("session completed", "session_id", s.ID, "reason", reason, "answered", r.TotalAnswered)
	return []Event{s.eventLocked(EventCompleted, now, r.clone())}
}

// Finish ends the session immediately; the current unanswered item is not
// scored. Calling it again returns the stored result.
func (e *Engine) Finish(ctx context.Context, id string) (TestResult, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return e.archived(ctx, id, err)
	}
	s.mu.Lock()
	if s.status == StatusConfiguring {
		s.mu.Unlock()
		return TestResult{}, ErrNotActive
	}
	reason, _ := ShouldStop(StopCheck{FinishRequested: true})
	evs := e.completeLocked(s, reason)
	r := s.result.clone()
	s.mu.Unlock()

	e.emit(evs...)
	return r, nil
}

// Pause freezes the countdown and the item clock. It does nothing unless
// the session is Active. A timed session whose limit is already spent is
// completed instead.
func (e *Engine) Pause(id string) error {
	return e.transition(id, StatusActive, func(s *Session, now time.Time) []Event {
		if s.expiredLocked(now) {
			return e.completeLocked(s, ReasonTimeout)
		}
		e.stopTimerLocked(s)
		s.elapsed.stop(now)
		s.itemClock.stop(now)
		s.status = StatusPaused
		return []Event{s.eventLocked(EventPaused, now, s.snapshotLocked(now))}
	})
}

// Resume restarts the clocks of a Paused session; otherwise it does nothing.
func (e *Engine) Resume(id string) error {
	return e.transition(id, StatusPaused, func(s *Session, now time.Time) []Event {
		s.status = StatusActive
		s.elapsed.start(now)
		if s.current != nil {
			s.itemClock.start(now)
		}
		e.startTimerLocked(s)
		return []Event{s.eventLocked(EventResumed, now, s.snapshotLocked(now))}
	})
}

func (e *Engine) transition(id string, from Status, apply func(*Session, time.Time) []Event) error {
	s, err := e.store.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.status != from {
		s.mu.Unlock()
		return nil
	}
	evs := apply(s, e.clock())
	s.mu.Unlock()
	e.emit(evs...)
	return nil
}

// ToggleFlag flips the flag on the current item and returns the new state.
// Outside Active/Paused, or with no current item, it reports false.
func (e *Engine) ToggleFlag(id string) (bool, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || (s.status != StatusActive && s.status != StatusPaused) {
		return false, nil
	}
	s.currentFlagged = !s.currentFlagged
	return s.currentFlagged, nil
}

// ToggleResponseFlag flips the flag on an answered item. Flags are the only
// part of a response that may change, and only before completion.
func (e *Engine) ToggleResponseFlag(id, itemID string) (bool, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted {
		return false, ErrNotActive
	}
	for i := range s.responses {
		if s.responses[i].ItemID == itemID {
			s.responses[i].Flagged = !s.responses[i].Flagged
			return s.responses[i].Flagged, nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrResponseNotFound, itemID)
}

func (e *Engine) Snapshot(id string) (Snapshot, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(e.clock()), nil
}

// Review lists answered items in order.
func (e *Engine) Review(id string) ([]ReviewEntry, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewLocked(), nil
}

// Result returns the final result of a completed session, consulting the
// archive once the session has been swept from memory.
func (e *Engine) Result(ctx context.Context, id string) (TestResult, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return e.archived(ctx, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return TestResult{}, ErrNotCompleted
	}
	return s.result.clone(), nil
}

func (e *Engine) archived(ctx context.Context, id string, notFound error) (TestResult, error) {
	if e.archive == nil {
		return TestResult{}, notFound
	}
	r, _, err := e.archive.LoadResult(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	return r, nil
}

// Owner returns the subject that started the session. Archived sessions
// are resolved too so ownership checks survive a sweep.
func (e *Engine) Owner(ctx context.Context, id string) (string, error) {
	s, err := e.store.Get(id)
	if err == nil {
		return s.Owner, nil
	}
	if e.archive == nil {
		return "", err
	}
	_, owner, aerr := e.archive.LoadResult(ctx, id)
	if aerr != nil {
		return "", aerr
	}
	return owner, nil
}

// Tick checks a timed session's countdown against the engine clock and
// completes it once the limit is spent. It is what the background ticker
// calls and lets callers drive time when the ticker is disabled.
func (e *Engine) Tick(id string) error {
	s, err := e.store.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	e.tick(s, epoch)
	return nil
}

// Sweep evicts completed sessions older than the retention window.
func (e *Engine) Sweep() int {
	return e.store.Sweep(e.clock().Add(-e.retention))
}

// RunJanitor sweeps every interval until ctx is done.
func (e *Engine) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := e.Sweep(); n > 0 {
				e.log.Info("swept completed sessions", "count", n, "live", e.store.Len())
			}
		}
	}
}

func (e *Engine) emit(evs ...Event) {
	if e.events == nil {
		return
	}
	for _, ev := range evs {
		e.events.Emit(ev)
	}
}

package exam

import (
	"sync"
	"time"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/scoring"
)

// Session is the aggregate root for one exam attempt. All mutation goes
// through Engine; mu guards every field below it.
type Session struct {
	ID    string
	Owner string

	// opMu serializes SubmitAnswer so only one answer is ever in flight.
	// Finish, Pause and ticks only take mu and never wait on the bank.
	opMu sync.Mutex

	mu         sync.Mutex
	config     TestConfiguration
	categories []string
	status     Status
	reason     Reason

	asked        []string
	askedSet     map[string]struct{}
	responses    []Response
	ability      scoring.Estimate
	currentIndex int

	current        *itembank.Item
	currentFlagged bool

	startedAt   time.Time
	completedAt time.Time

	byCategory    *scoring.Tracker
	bySubcategory *scoring.Tracker
	byDifficulty  *scoring.Tracker

	elapsed   stopwatch
	itemClock stopwatch

	result    *TestResult
	epoch     uint64
	stopTimer func()
	seq       uint64
}

func newSession(id, owner string, cfg TestConfiguration, categories []string, now time.Time) *Session {
	s := &Session{
		ID:            id,
		Owner:         owner,
		config:        cfg,
		categories:    categories,
		status:        StatusConfiguring,
		askedSet:      map[string]struct{}{},
		ability:       scoring.EstimateAbility(nil),
		startedAt:     now,
		byCategory:    scoring.NewTracker(),
		bySubcategory: scoring.NewTracker(),
		byDifficulty:  scoring.NewTracker(),
	}
	return s
}

// remainingLocked is the countdown at now, derived from the pause-aware
// elapsed stopwatch rather than from counted ticks.
func (s *Session) remainingLocked(now time.Time) int {
	if s.config.Mode != ModeTimed {
		return 0
	}
	left := s.config.TimeLimitSeconds - int(s.elapsed.elapsed(now)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// expiredLocked reports whether an active timed session has used its limit.
func (s *Session) expiredLocked(now time.Time) bool {
	return s.status == StatusActive && s.config.Mode == ModeTimed && s.remainingLocked(now) == 0
}

// eventLocked stamps the next sequence number on a new event.
func (s *Session) eventLocked(typ string, at time.Time, payload any) Event {
	s.seq++
	return Event{Type: typ, SessionID: s.ID, Seq: s.seq, Owner: s.Owner, At: at, Payload: payload}
}

func (s *Session) completedBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusCompleted && s.completedAt.Before(cutoff)
}

// presentLocked makes it the current item and starts its clock.
func (s *Session) presentLocked(it itembank.Item, now time.Time) {
	s.current = &it
	s.currentFlagged = false
	s.asked = append(s.asked, it.ID)
	s.askedSet[it.ID] = struct{}{}
	s.itemClock.reset(now, s.status == StatusActive)
}

func (s *Session) askedCopyLocked() map[string]struct{} {
	out := make(map[string]struct{}, len(s.askedSet))
	for id := range s.askedSet {
		out[id] = struct{}{}
	}
	return out
}

// commitLocked appends r and recomputes the ability estimate from the full
// history.
func (s *Session) commitLocked(r Response) {
	s.responses = append(s.responses, r)
	s.byCategory.Record(r.Category, r.IsCorrect)
	if r.Subcategory != "" {
		s.bySubcategory.Record(r.Category+"/"+r.Subcategory, r.IsCorrect)
	}
	s.byDifficulty.Record(string(r.Difficulty), r.IsCorrect)
	s.ability = scoring.EstimateAbility(outcomes(s.responses))
	s.currentIndex++
	s.current = nil
	s.currentFlagged = false
}

func outcomes(rs []Response) []scoring.Outcome {
	out := make([]scoring.Outcome, len(rs))
	for i, r := range rs {
		out[i] = scoring.Outcome{Correct: r.IsCorrect, Difficulty: r.Difficulty}
	}
	return out
}

func (s *Session) flaggedLocked() int {
	n := 0
	for _, r := range s.responses {
		if r.Flagged {
			n++
		}
	}
	if s.current != nil && s.currentFlagged {
		n++
	}
	return n
}

// timeSpentLocked excludes paused time. Timed sessions count down the
// configured limit, so their spend is whatever the countdown consumed.
func (s *Session) timeSpentLocked(now time.Time) int {
	if s.config.Mode == ModeTimed {
		return s.config.TimeLimitSeconds - s.remainingLocked(now)
	}
	return seconds(s.elapsed.elapsed(now))
}

func (s *Session) buildResultLocked(now time.Time) TestResult {
	score := 0
	for _, r := range s.responses {
		if r.IsCorrect {
			score++
		}
	}
	n := len(s.responses)
	theta := s.ability.Theta
	return TestResult{
		SessionID:            s.ID,
		Score:                score,
		Percentage:           scoring.Percent(score, n),
		TotalAnswered:        n,
		FinalAbility:         s.ability,
		ConfidenceInterval:   scoring.ConfidenceInterval(theta, n),
		PassingProbability:   scoring.PassProbability(theta, n),
		CategoryBreakdown:    s.byCategory.Snapshot(),
		SubcategoryBreakdown: s.bySubcategory.Snapshot(),
		DifficultyBreakdown:  s.byDifficulty.Snapshot(),
		TimeSpentSeconds:     s.timeSpentLocked(now),
		Reason:               s.reason,
		StartedAt:            s.startedAt,
		CompletedAt:          s.completedAt,
	}
}

func (s *Session) snapshotLocked(now time.Time) Snapshot {
	n := len(s.responses)
	snap := Snapshot{
		SessionID:  s.ID,
		Status:     s.status,
		Mode:       s.config.Mode,
		Reason:     s.reason,
		Categories: append([]string(nil), s.categories...),
		Progress: Progress{
			Answered:     n,
			Total:        s.config.ItemCount,
			CurrentIndex: s.currentIndex,
			Flagged:      s.flaggedLocked(),
		},
		Ability:            s.ability,
		PassingProbability: scoring.PassProbability(s.ability.Theta, n),
		StartedAt:          s.startedAt,
	}
	if s.current != nil {
		snap.CurrentItem = viewOf(*s.current)
		snap.CurrentFlagged = s.currentFlagged
	}
	if s.config.Mode == ModeTimed {
		rem := s.remainingLocked(now)
		snap.RemainingSeconds = &rem
	}
	if s.status == StatusCompleted {
		at := s.completedAt
		snap.CompletedAt = &at
	}
	return snap
}

// ReviewEntry is one answered item as shown on the review screen.
// Correctness is withheld in timed mode until the session completes.
type ReviewEntry struct {
	Index             int                 `json:"index"`
	ItemID            string              `json:"item_id"`
	Category          string              `json:"category"`
	Subcategory       string              `json:"subcategory,omitempty"`
	Difficulty        itembank.Difficulty `json:"difficulty"`
	ChosenOptionIndex int                 `json:"chosen_option_index"`
	Correct           *bool               `json:"correct,omitempty"`
	TimeSpentSeconds  int                 `json:"time_spent_seconds"`
	Flagged           bool                `json:"flagged"`
}

func (s *Session) reviewLocked() []ReviewEntry {
	reveal := s.config.Mode == ModeTutorial || s.status == StatusCompleted
	out := make([]ReviewEntry, len(s.responses))
	for i, r := range s.responses {
		e := ReviewEntry{
			Index:             i,
			ItemID:            r.ItemID,
			Category:          r.Category,
			Subcategory:       r.Subcategory,
			Difficulty:        r.Difficulty,
			ChosenOptionIndex: r.ChosenOptionIndex,
			TimeSpentSeconds:  r.TimeSpentSeconds,
			Flagged:           r.Flagged,
		}
		if reveal {
			c := r.IsCorrect
			e.Correct = &c
		}
		out[i] = e
	}
	return out
}

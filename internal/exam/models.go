package exam

import (
	"time"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/scoring"
)

type Mode string

const (
	ModeTutorial Mode = "tutorial"
	ModeTimed    Mode = "timed"
)

type Status string

const (
	StatusConfiguring Status = "configuring"
	StatusActive      Status = "active"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
)

// Reason records why a session completed.
type Reason string

const (
	ReasonItemCount     Reason = "item_count"
	ReasonTimeout       Reason = "timeout"
	ReasonUserFinished  Reason = "user_finished"
	ReasonBankExhausted Reason = "bank_exhausted"
)

// Response is created once per answered item. Only Flagged may change later.
type Response struct {
	ItemID            string              `json:"item_id"`
	ChosenOptionIndex int                 `json:"chosen_option_index"`
	IsCorrect         bool                `json:"is_correct"`
	Difficulty        itembank.Difficulty `json:"difficulty"`
	Category          string              `json:"category"`
	Subcategory       string              `json:"subcategory,omitempty"`
	TimeSpentSeconds  int                 `json:"time_spent_seconds"`
	Flagged           bool                `json:"flagged"`
	AnsweredAt        time.Time           `json:"answered_at"`
}

// ItemView is an item as shown to the exam-taker: no answer key.
type ItemView struct {
	ID          string              `json:"id"`
	Category    string              `json:"category"`
	Subcategory string              `json:"subcategory,omitempty"`
	Difficulty  itembank.Difficulty `json:"difficulty"`
	Stem        string              `json:"stem,omitempty"`
	Options     []string            `json:"options"`
}

func viewOf(it itembank.Item) *ItemView {
	opts := make([]string, len(it.Options))
	copy(opts, it.Options)
	return &ItemView{
		ID:          it.ID,
		Category:    it.Category,
		Subcategory: it.Subcategory,
		Difficulty:  it.Difficulty,
		Stem:        it.Stem,
		Options:     opts,
	}
}

type Progress struct {
	Answered     int `json:"answered"`
	Total        int `json:"total"`
	CurrentIndex int `json:"current_index"`
	Flagged      int `json:"flagged"`
}

// Snapshot is the read-only view a presentation layer polls.
type Snapshot struct {
	SessionID          string           `json:"session_id"`
	Status             Status           `json:"status"`
	Mode               Mode             `json:"mode"`
	Reason             Reason           `json:"reason,omitempty"`
	Categories         []string         `json:"categories"`
	CurrentItem        *ItemView        `json:"current_item,omitempty"`
	CurrentFlagged     bool             `json:"current_flagged"`
	Progress           Progress         `json:"progress"`
	Ability            scoring.Estimate `json:"ability"`
	PassingProbability float64          `json:"passing_probability"`
	RemainingSeconds   *int             `json:"remaining_seconds,omitempty"`
	StartedAt          time.Time        `json:"started_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

// AnswerOutcome is returned by SubmitAnswer. Correct and CorrectOption are
// only filled in tutorial mode, where immediate feedback is expected.
type AnswerOutcome struct {
	Completed     bool        `json:"completed"`
	Reason        Reason      `json:"reason,omitempty"`
	NextItem      *ItemView   `json:"next_item,omitempty"`
	Correct       *bool       `json:"correct,omitempty"`
	CorrectOption *int        `json:"correct_option,omitempty"`
	Discarded     bool        `json:"discarded,omitempty"`
	Result        *TestResult `json:"result,omitempty"`
}

// TestResult is built once when a session completes and never changes.
type TestResult struct {
	SessionID            string                         `json:"session_id"`
	Score                int                            `json:"score"`
	Percentage           int                            `json:"percentage"`
	TotalAnswered        int                            `json:"total_answered"`
	FinalAbility         scoring.Estimate               `json:"final_ability"`
	ConfidenceInterval   scoring.Interval               `json:"confidence_interval"`
	PassingProbability   float64                        `json:"passing_probability"`
	CategoryBreakdown    map[string]scoring.Performance `json:"category_breakdown"`
	SubcategoryBreakdown map[string]scoring.Performance `json:"subcategory_breakdown,omitempty"`
	DifficultyBreakdown  map[string]scoring.Performance `json:"difficulty_breakdown"`
	TimeSpentSeconds     int                            `json:"time_spent_seconds"`
	Reason               Reason                         `json:"reason"`
	StartedAt            time.Time                      `json:"started_at"`
	CompletedAt          time.Time                      `json:"completed_at"`
}

// clone copies the breakdown maps so callers cannot reach the stored result.
func (r TestResult) clone() TestResult {
	r.CategoryBreakdown = copyPerf(r.CategoryBreakdown)
	r.SubcategoryBreakdown = copyPerf(r.SubcategoryBreakdown)
	r.DifficultyBreakdown = copyPerf(r.DifficultyBreakdown)
	return r
}

func copyPerf(m map[string]scoring.Performance) map[string]scoring.Performance {
	if m == nil {
		return nil
	}
	out := make(map[string]scoring.Performance, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

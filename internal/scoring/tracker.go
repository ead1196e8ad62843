package scoring

import "math"

// Tally counts correct answers out of total for one key.
type Tally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Performance is a Tally with the rounded percentage attached.
type Performance struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Tracker aggregates correct/total per key. Counts only grow, so
// Correct <= Total always holds. It is not safe for concurrent use; the
// owning session serializes access.
type Tracker struct {
	tallies map[string]*Tally
}

func NewTracker() *Tracker {
	return &Tracker{tallies: map[string]*Tally{}}
}

func (t *Tracker) Record(key string, correct bool) {
	tl, ok := t.tallies[key]
	if !ok {
		tl = &Tally{}
		t.tallies[key] = tl
	}
	tl.Total++
	if correct {
		tl.Correct++
	}
}

// Snapshot copies the current tallies. Keys with no answers are omitted.
func (t *Tracker) Snapshot() map[string]Performance {
	out := make(map[string]Performance, len(t.tallies))
	for k, tl := range t.tallies {
		if tl.Total == 0 {
			continue
		}
		out[k] = Performance{
			Correct:    tl.Correct,
			Total:      tl.Total,
			Percentage: Percent(tl.Correct, tl.Total),
		}
	}
	return out
}

// Percent returns round(100*correct/total), or 0 when total is 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

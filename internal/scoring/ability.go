// Package scoring holds the pure psychometric helpers used by the exam
// engine: ability estimation, passing probability, confidence intervals and
// per-category tallies. Nothing here performs I/O or keeps hidden state.
package scoring

import (
	"math"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
)

// Outcome is the part of a response the estimator looks at.
type Outcome struct {
	Correct    bool
	Difficulty itembank.Difficulty
}

// Estimate is an ability estimate on a roughly [-3, +3] scale.
type Estimate struct {
	Theta         float64 `json:"theta"`
	StandardError float64 `json:"standard_error"`
}

// DifficultyWeight maps a band to its numeric weight. Unknown bands count
// as medium.
func DifficultyWeight(d itembank.Difficulty) float64 {
	switch d {
	case itembank.DifficultyEasy:
		return -1
	case itembank.DifficultyHard:
		return 1
	default:
		return 0
	}
}

// EstimateAbility recomputes theta from the full ordered history. The k-th
// response (1-based) is weighted by 1/sqrt(k); a correct answer contributes
// 1+d and a wrong one -(1-d), so hard items reward more and easy items
// penalize more.
func EstimateAbility(history []Outcome) Estimate {
	n := len(history)
	if n == 0 {
		return Estimate{Theta: 0, StandardError: 1}
	}
	var raw float64
	for i, o := range history {
		d := DifficultyWeight(o.Difficulty)
		w := 1 / math.Sqrt(float64(i+1))
		if o.Correct {
			raw += (1 + d) * w
		} else {
			raw -= (1 - d) * w
		}
	}
	return Estimate{
		Theta:         raw / float64(n),
		StandardError: StandardError(n),
	}
}

// StandardError is 1/sqrt(max(1, n)).
func StandardError(n int) float64 {
	if n < 1 {
		n = 1
	}
	return 1 / math.Sqrt(float64(n))
}

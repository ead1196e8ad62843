package grading

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
)

// ErrOptionOutOfRange is returned when the chosen option does not exist on
// the item. Callers must not record anything in that case.
var ErrOptionOutOfRange = errors.New("option index out of range")

// Result is the outcome of grading a single response.
type Result struct {
	ChosenOption  int  `json:"chosen_option"`
	CorrectOption int  `json:"correct_option"`
	Correct       bool `json:"correct"`
}

// Grade checks a chosen option index against the item's key.
func Grade(it itembank.Item, option int) (Result, error) {
	if option < 0 || option >= len(it.Options) {
		return Result{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOptionOutOfRange, option, len(it.Options))
	}
	return Result{
		ChosenOption:  option,
		CorrectOption: it.CorrectOptionIndex,
		Correct:       option == it.CorrectOptionIndex,
	}, nil
}

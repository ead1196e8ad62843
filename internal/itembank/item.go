package itembank

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Difficulty is the coarse hardness band of an item.
type Difficulty string

const (
	DifficultyAny    Difficulty = ""
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Bands lists the concrete difficulty bands in ascending order.
var Bands = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty accepts the band names case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Item is a single multiple-choice exam question. Items are immutable once
// they leave the bank; the engine only keeps copies.
type Item struct {
	ID                 string     `json:"id"`
	Category           string     `json:"category"`
	Subcategory        string     `json:"subcategory,omitempty"`
	Difficulty         Difficulty `json:"difficulty"`
	Stem               string     `json:"stem,omitempty"`
	Options            []string   `json:"options"`
	CorrectOptionIndex int        `json:"correct_option_index"`
}

func (it Item) Validate() error {
	switch {
	case strings.TrimSpace(it.ID) == "":
		return errors.New("item.id is required")
	case strings.TrimSpace(it.Category) == "":
		return fmt.Errorf("item %s: category is required", it.ID)
	case !it.Difficulty.Valid():
		return fmt.Errorf("item %s: unknown difficulty %q", it.ID, it.Difficulty)
	case len(it.Options) < 2:
		return fmt.Errorf("item %s: at least two options required", it.ID)
	case it.CorrectOptionIndex < 0 || it.CorrectOptionIndex >= len(it.Options):
		return fmt.Errorf("item %s: correct_option_index %d out of range", it.ID, it.CorrectOptionIndex)
	}
	return nil
}

// LoadJSON reads a JSON array of items and validates each one.
func LoadJSON(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("itembank: decode items: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("itembank: duplicate item id %s", it.ID)
		}
		seen[it.ID] = true
	}
	return items, nil
}

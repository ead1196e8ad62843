package itembank

import (
	"context"
	"errors"
)

var (
	// ErrBankUnavailable is returned when the backing store cannot be queried.
	ErrBankUnavailable = errors.New("item bank unavailable")
	// ErrExhausted means no unasked item of any difficulty remains.
	ErrExhausted = errors.New("item bank exhausted")
)

// Gateway is the read-only view of the item bank the engine depends on.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// FetchCandidates returns items in any of the given categories at the
	// given difficulty (DifficultyAny matches every band), skipping ids in
	// exclude. An empty result is not an error.
	FetchCandidates(ctx context.Context, categories []string, difficulty Difficulty, exclude map[string]struct{}) ([]Item, error)
	// Categories lists every category known to the bank.
	Categories(ctx context.Context) ([]string, error)
}

func matches(it Item, cats map[string]struct{}, difficulty Difficulty, exclude map[string]struct{}) bool {
	if _, skip := exclude[it.ID]; skip {
		return false
	}
	if difficulty != DifficultyAny && it.Difficulty != difficulty {
		return false
	}
	if len(cats) == 0 {
		return true
	}
	_, ok := cats[it.Category]
	return ok
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

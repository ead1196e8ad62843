package exam

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
)

// Band thresholds on theta.
const (
	easyCeiling = -0.5
	hardFloor   = 0.5
)

// BandFor maps an ability estimate to the difficulty band to draw from.
func BandFor(theta float64) itembank.Difficulty {
	switch {
	case theta < easyCeiling:
		return itembank.DifficultyEasy
	case theta > hardFloor:
		return itembank.DifficultyHard
	default:
		return itembank.DifficultyMedium
	}
}

// Selector picks the next item from the bank. The random source is shared
// by every session using the selector and is guarded by a mutex.
type Selector struct {
	bank itembank.Gateway

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector uses rng for tie-breaking within the eligible pool. A nil rng
// is seeded from the wall clock.
func NewSelector(bank itembank.Gateway, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{bank: bank, rng: rng}
}

// SelectNext returns an unasked item in the band matching theta, preferring
// a category other than lastCategory. When the band is empty it falls back
// to any unasked item. It fails with itembank.ErrExhausted only when nothing
// unasked remains at all; gateway errors are returned unchanged.
func (s *Selector) SelectNext(ctx context.Context, categories []string, theta float64, asked map[string]struct{}, lastCategory string) (itembank.Item, error) {
	band := BandFor(theta)
	for _, d := range []itembank.Difficulty{band, itembank.DifficultyAny} {
		pool, err := s.bank.FetchCandidates(ctx, categories, d, asked)
		if err != nil {
			return itembank.Item{}, err
		}
		pool = dropAsked(pool, asked)
		if len(pool) == 0 {
			continue
		}
		return s.pick(diversify(pool, lastCategory)), nil
	}
	return itembank.Item{}, fmt.Errorf("%w: no unasked item in %v", itembank.ErrExhausted, categories)
}

func (s *Selector) pick(pool []itembank.Item) itembank.Item {
	s.mu.Lock()
	i := s.rng.Intn(len(pool))
	s.mu.Unlock()
	return pool[i]
}

// diversify keeps only items outside lastCategory when any exist.
func diversify(pool []itembank.Item, lastCategory string) []itembank.Item {
	if lastCategory == "" {
		return pool
	}
	other := make([]itembank.Item, 0, len(pool))
	for _, it := range pool {
		if it.Category != lastCategory {
			other = append(other, it)
		}
	}
	if len(other) == 0 {
		return pool
	}
	return other
}

// dropAsked guards against gateways that ignore the exclusion set.
func dropAsked(pool []itembank.Item, asked map[string]struct{}) []itembank.Item {
	out := pool[:0:0]
	for _, it := range pool {
		if _, seen := asked[it.ID]; !seen {
			out = append(out, it)
		}
	}
	return out
}

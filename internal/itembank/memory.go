package itembank

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBank keeps items in process. Reads take a shared lock only.
type MemoryBank struct {
	mu    sync.RWMutex
	items []Item
	index map[string]int
}

// NewMemoryBank seeds a bank from trusted fixtures and panics if any item
// is invalid. Untrusted input goes through Add, which reports the error.
func NewMemoryBank(items ...Item) *MemoryBank {
	b := &MemoryBank{index: map[string]int{}}
	if err := b.Add(items...); err != nil {
		panic(err)
	}
	return b
}

// Add inserts or replaces items by id.
func (b *MemoryBank) Add(items ...Item) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("itembank: %w", err)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range items {
		if i, ok := b.index[it.ID]; ok {
			b.items[i] = it
			continue
		}
		b.index[it.ID] = len(b.items)
		b.items = append(b.items, it)
	}
	return nil
}

func (b *MemoryBank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

func (b *MemoryBank) FetchCandidates(ctx context.Context, categories []string, difficulty Difficulty, exclude map[string]struct{}) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats := toSet(categories)
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Item
	for _, it := range b.items {
		if matches(it, cats, difficulty, exclude) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (b *MemoryBank) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	seen := map[string]struct{}{}
	for _, it := range b.items {
		seen[it.Category] = struct{}{}
	}
	b.mu.RUnlock()
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

package exam_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-cat/internal/exam"
	"github.com/mind-engage/mindengage-cat/internal/itembank"
)

/* ---------------- fakes shared by the engine tests ---------------- */

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []exam.Event
}

func (r *recorder) Emit(ev exam.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// flakyBank fails every fetch while fail is set.
type flakyBank struct {
	itembank.Gateway
	mu   sync.Mutex
	fail bool
}

func (f *flakyBank) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyBank) FetchCandidates(ctx context.Context, cats []string, d itembank.Difficulty, ex map[string]struct{}) ([]itembank.Item, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: connection refused", itembank.ErrBankUnavailable)
	}
	return f.Gateway.FetchCandidates(ctx, cats, d, ex)
}

// gatedBank blocks fetches once armed until release is closed.
type gatedBank struct {
	itembank.Gateway
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedBank(g itembank.Gateway) *gatedBank {
	return &gatedBank{Gateway: g, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedBank) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gatedBank) FetchCandidates(ctx context.Context, cats []string, d itembank.Difficulty, ex map[string]struct{}) ([]itembank.Item, error) {
	g.mu.Lock()
	armed := g.armed
	g.mu.Unlock()
	if armed {
		select {
		case g.entered <- struct{}{}:
		default:
		}
		<-g.release
	}
	return g.Gateway.FetchCandidates(ctx, cats, d, ex)
}

// sampleItems builds perCell items for every category/band pair. The
// correct option is always index (n % 4).
func sampleItems(categories []string, perCell int) []itembank.Item {
	var out []itembank.Item
	n := 0
	for _, c := range categories {
		for _, d := range itembank.Bands {
			for i := 0; i < perCell; i++ {
				out = append(out, itembank.Item{
					ID:                 fmt.Sprintf("%s-%s-%d", c, d, i),
					Category:           c,
					Subcategory:        "general",
					Difficulty:         d,
					Stem:               fmt.Sprintf("question %d", n),
					Options:            []string{"a", "b", "c", "d"},
					CorrectOptionIndex: n % 4,
				})
				n++
			}
		}
	}
	return out
}

func keyOf(items []itembank.Item) map[string]int {
	m := make(map[string]int, len(items))
	for _, it := range items {
		m[it.ID] = it.CorrectOptionIndex
	}
	return m
}

func newTestEngine(bank itembank.Gateway, clock *fakeClock, opts ...exam.Option) *exam.Engine {
	base := []exam.Option{
		exam.WithRand(rand.New(rand.NewSource(7))),
		exam.WithClock(clock.Now),
		exam.WithTicker(nil),
	}
	return exam.NewEngine(bank, append(base, opts...)...)
}

func wrong(correct int) int { return (correct + 1) % 4 }

package itembank_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-cat/internal/db"
	"github.com/mind-engage/mindengage-cat/internal/itembank"
)

func fixture() []itembank.Item {
	return []itembank.Item{
		{ID: "m1", Category: "math", Subcategory: "algebra", Difficulty: itembank.DifficultyEasy, Stem: "1+1", Options: []string{"1", "2"}, CorrectOptionIndex: 1},
		{ID: "m2", Category: "math", Difficulty: itembank.DifficultyHard, Options: []string{"a", "b", "c"}, CorrectOptionIndex: 2},
		{ID: "r1", Category: "reading", Difficulty: itembank.DifficultyEasy, Options: []string{"x", "y"}},
		{ID: "s1", Category: "science", Difficulty: itembank.DifficultyMedium, Options: []string{"x", "y"}},
	}
}

func ids(items []itembank.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestItemValidate(t *testing.T) {
	good := fixture()[0]
	if err := good.Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}
	bad := []func(*itembank.Item){
		func(it *itembank.Item) { it.ID = " " },
		func(it *itembank.Item) { it.Category = "" },
		func(it *itembank.Item) { it.Difficulty = "extreme" },
		func(it *itembank.Item) { it.Options = []string{"only"} },
		func(it *itembank.Item) { it.CorrectOptionIndex = 2 },
		func(it *itembank.Item) { it.CorrectOptionIndex = -1 },
	}
	for i, mutate := range bad {
		it := good
		it.Options = append([]string(nil), good.Options...)
		mutate(&it)
		if err := it.Validate(); err == nil {
			t.Errorf("case %d: invalid item accepted", i)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := itembank.ParseDifficulty(" HARD ")
	if err != nil || d != itembank.DifficultyHard {
		t.Fatalf("got %q %v", d, err)
	}
	if _, err := itembank.ParseDifficulty("any"); err == nil {
		t.Fatal("unknown band accepted")
	}
}

func TestLoadJSON(t *testing.T) {
	items, err := itembank.LoadJSON(strings.NewReader(`[
		{"id":"q1","category":"math","difficulty":"easy","options":["a","b"],"correct_option_index":0},
		{"id":"q2","category":"math","difficulty":"hard","options":["a","b"],"correct_option_index":1}
	]`))
	if err != nil || len(items) != 2 {
		t.Fatalf("load: %v %v", items, err)
	}
	if _, err := itembank.LoadJSON(strings.NewReader(`[
		{"id":"q1","category":"math","difficulty":"easy","options":["a","b"]},
		{"id":"q1","category":"math","difficulty":"easy","options":["a","b"]}
	]`)); err == nil {
		t.Fatal("duplicate ids accepted")
	}
	if _, err := itembank.LoadJSON(strings.NewReader(`{"id":"q1"}`)); err == nil {
		t.Fatal("non-array accepted")
	}
}

// gatewayContract runs the same expectations against every Gateway.
func gatewayContract(t *testing.T, g itembank.Gateway) {
	t.Helper()
	ctx := context.Background()

	all, err := g.FetchCandidates(ctx, nil, itembank.DifficultyAny, nil)
	if err != nil || len(all) != 4 {
		t.Fatalf("fetch all: %v %v", ids(all), err)
	}
	easy, _ := g.FetchCandidates(ctx, []string{"math", "reading"}, itembank.DifficultyEasy, nil)
	if got := ids(easy); !reflect.DeepEqual(got, []string{"m1", "r1"}) {
		t.Fatalf("easy math/reading: %v", got)
	}
	excl, _ := g.FetchCandidates(ctx, []string{"math"}, itembank.DifficultyAny, map[string]struct{}{"m1": {}})
	if got := ids(excl); !reflect.DeepEqual(got, []string{"m2"}) {
		t.Fatalf("exclusion ignored: %v", got)
	}
	none, err := g.FetchCandidates(ctx, []string{"history"}, itembank.DifficultyAny, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown category: %v %v", none, err)
	}
	cats, err := g.Categories(ctx)
	if err != nil || !reflect.DeepEqual(cats, []string{"math", "reading", "science"}) {
		t.Fatalf("categories: %v %v", cats, err)
	}
	m1, _ := g.FetchCandidates(ctx, []string{"math"}, itembank.DifficultyEasy, nil)
	if len(m1) != 1 || m1[0].Subcategory != "algebra" || m1[0].Stem != "1+1" || !reflect.DeepEqual(m1[0].Options, []string{"1", "2"}) || m1[0].CorrectOptionIndex != 1 {
		t.Fatalf("item fields lost: %+v", m1)
	}
}

func TestNewMemoryBankRejectsInvalidSeed(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("invalid seed item accepted")
		}
	}()
	seed := append(fixture(), itembank.Item{ID: "broken", Category: "math", Difficulty: "impossible", Options: []string{"a", "b"}})
	itembank.NewMemoryBank(seed...)
}

func TestMemoryBank(t *testing.T) {
	b := itembank.NewMemoryBank(fixture()...)
	gatewayContract(t, b)

	if err := b.Add(itembank.Item{ID: "bad"}); err == nil {
		t.Fatal("invalid item added")
	}
	upd := fixture()[3]
	upd.Stem = "updated"
	if err := b.Add(upd); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 4 {
		t.Fatalf("re-adding an id should replace, len %d", b.Len())
	}

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.FetchCandidates(cctx, nil, itembank.DifficultyAny, nil); err == nil {
		t.Fatal("cancelled context ignored")
	}
}

func TestSQLBank(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:itembank_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	b := itembank.NewSQLBank(conn, "sqlite")
	if err := b.Import(ctx, fixture()); err != nil {
		t.Fatalf("import: %v", err)
	}
	// re-import upserts
	if err := b.Import(ctx, fixture()); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	gatewayContract(t, b)

	if err := b.Import(ctx, []itembank.Item{{ID: "x"}}); err == nil {
		t.Fatal("invalid import accepted")
	}

	conn.Close()
	if _, err := b.FetchCandidates(ctx, nil, itembank.DifficultyAny, nil); !errors.Is(err, itembank.ErrBankUnavailable) {
		t.Fatalf("closed db: want ErrBankUnavailable, got %v", err)
	}
}

type countingGateway struct {
	itembank.Gateway
	failures int
	calls    int
	err      error
}

func (c *countingGateway) FetchCandidates(ctx context.Context, cats []string, d itembank.Difficulty, ex map[string]struct{}) ([]itembank.Item, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return c.Gateway.FetchCandidates(ctx, cats, d, ex)
}

func TestRetrying(t *testing.T) {
	ctx := context.Background()
	unavailable := fmt.Errorf("%w: timeout", itembank.ErrBankUnavailable)

	g := &countingGateway{Gateway: itembank.NewMemoryBank(fixture()...), failures: 2, err: unavailable}
	items, err := itembank.WithRetry(g, 3, time.Millisecond).FetchCandidates(ctx, nil, itembank.DifficultyAny, nil)
	if err != nil || len(items) != 4 || g.calls != 3 {
		t.Fatalf("items %d err %v calls %d", len(items), err, g.calls)
	}

	g = &countingGateway{Gateway: itembank.NewMemoryBank(fixture()...), failures: 5, err: unavailable}
	if _, err := itembank.WithRetry(g, 3, time.Millisecond).FetchCandidates(ctx, nil, itembank.DifficultyAny, nil); !errors.Is(err, itembank.ErrBankUnavailable) || g.calls != 3 {
		t.Fatalf("err %v calls %d", err, g.calls)
	}

	g = &countingGateway{Gateway: itembank.NewMemoryBank(fixture()...), failures: 5, err: errors.New("bad query")}
	if _, err := itembank.WithRetry(g, 3, time.Millisecond).FetchCandidates(ctx, nil, itembank.DifficultyAny, nil); err == nil || g.calls != 1 {
		t.Fatalf("non-retryable error retried: calls %d", g.calls)
	}

	g = &countingGateway{Gateway: itembank.NewMemoryBank(fixture()...), failures: 5, err: unavailable}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := itembank.WithRetry(g, 3, time.Hour).FetchCandidates(cctx, nil, itembank.DifficultyAny, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

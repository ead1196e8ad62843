package presets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-cat/internal/exam"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	cases := []struct {
		name  string
		mode  exam.Mode
		items int
		limit int
	}{
		{"drill", exam.ModeTutorial, 10, 0},
		{"quick", exam.ModeTimed, 25, 1800},
		{"full", exam.ModeTimed, 75, 5400},
	}
	for _, tc := range cases {
		p, err := c.Lookup(tc.name)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if p.Config.Mode != tc.mode || p.Config.ItemCount != tc.items || p.Config.TimeLimitSeconds != tc.limit {
			t.Errorf("%s: %+v", tc.name, p.Config)
		}
	}
	if got := len(c.List()); got != 3 {
		t.Fatalf("list has %d presets", got)
	}
	if _, err := c.Lookup("marathon"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("want ErrUnknownPreset, got %v", err)
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	c := Defaults()
	p, _ := c.Lookup("drill")
	p.Config.Categories[0] = "mutated"
	again, _ := c.Lookup("drill")
	if again.Config.Categories[0] != "all" {
		t.Fatal("catalog mutated through a lookup")
	}
}

func TestApplyOverrides(t *testing.T) {
	c := Defaults()
	cfg, err := c.Apply("quick", Overrides{Categories: []string{"math"}, ItemCount: 5})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != exam.ModeTimed || cfg.ItemCount != 5 || cfg.TimeLimitSeconds != 1800 || cfg.Categories[0] != "math" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("applied config invalid: %v", err)
	}

	cfg, _ = c.Apply("full", Overrides{Mode: exam.ModeTutorial})
	if cfg.TimeLimitSeconds != 0 || cfg.Validate() != nil {
		t.Fatalf("switching to tutorial should drop the limit: %+v", cfg)
	}

	cfg, _ = c.Apply("", Overrides{Categories: []string{"math"}, ItemCount: 3})
	if err := cfg.Validate(); !errors.Is(err, exam.ErrInvalidConfiguration) {
		t.Fatalf("incomplete request should fail validation, got %v", err)
	}
}

func TestParseRejectsBadFiles(t *testing.T) {
	bad := map[string]string{
		"invalid config": "presets:\n  - name: x\n    config: {categories: [all], item_count: 0, mode: tutorial}\n",
		"duplicate":      "presets:\n  - name: x\n    config: {categories: [a], item_count: 1, mode: tutorial}\n  - name: x\n    config: {categories: [a], item_count: 1, mode: tutorial}\n",
		"nameless":       "presets:\n  - config: {categories: [a], item_count: 1, mode: tutorial}\n",
		"not yaml":       "presets: [",
	}
	for name, raw := range bad {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	raw := "presets:\n  - name: mini\n    title: Mini\n    config: {categories: [math], item_count: 2, mode: timed, time_limit_seconds: 60}\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := c.Lookup("mini")
	if err != nil || p.Config.TimeLimitSeconds != 60 {
		t.Fatalf("%+v %v", p, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
	if c, err := Load(""); err != nil || len(c.List()) != 3 {
		t.Fatal("empty path should load defaults")
	}
}

package exam

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// AllCategories expands to every category the bank knows about.
	AllCategories = "all"

	MinItemCount        = 1
	MaxItemCount        = 200
	MaxTimeLimitSeconds = 6 * 60 * 60
)

// ErrInvalidConfiguration is wrapped by every configuration validation failure.
var ErrInvalidConfiguration = errors.New("invalid test configuration")

// TestConfiguration is fixed once a session starts.
type TestConfiguration struct {
	Categories       []string `json:"categories" yaml:"categories"`
	ItemCount        int      `json:"item_count" yaml:"item_count"`
	Mode             Mode     `json:"mode" yaml:"mode"`
	TimeLimitSeconds int      `json:"time_limit_seconds,omitempty" yaml:"time_limit_seconds"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks the configuration without consulting the item bank.
func (c TestConfiguration) Validate() error {
	if len(normalizeCategories(c.Categories)) == 0 {
		return invalid("at least one category is required")
	}
	if c.ItemCount < MinItemCount || c.ItemCount > MaxItemCount {
		return invalid("item_count %d outside [%d,%d]", c.ItemCount, MinItemCount, MaxItemCount)
	}
	switch c.Mode {
	case ModeTimed:
		if c.TimeLimitSeconds <= 0 {
			return invalid("timed mode requires time_limit_seconds")
		}
		if c.TimeLimitSeconds > MaxTimeLimitSeconds {
			return invalid("time_limit_seconds %d exceeds %d", c.TimeLimitSeconds, MaxTimeLimitSeconds)
		}
	case ModeTutorial:
		if c.TimeLimitSeconds != 0 {
			return invalid("time_limit_seconds is only allowed in timed mode")
		}
	default:
		return invalid("unknown mode %q", c.Mode)
	}
	return nil
}

// wantsAll reports whether the "all" sentinel appears in the category list.
func (c TestConfiguration) wantsAll() bool {
	for _, cat := range normalizeCategories(c.Categories) {
		if strings.EqualFold(cat, AllCategories) {
			return true
		}
	}
	return false
}

// normalizeCategories trims, drops blanks and duplicates, and sorts.
func normalizeCategories(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Package presets defines named exam configurations. Every preset runs on
// the same engine; they differ only in mode, length and time limit.
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-cat/internal/exam"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrUnknownPreset = errors.New("unknown preset")

type Preset struct {
	Name        string                 `yaml:"name" json:"name"`
	Title       string                 `yaml:"title" json:"title"`
	Description string                 `yaml:"description" json:"description,omitempty"`
	Config      exam.TestConfiguration `yaml:"config" json:"config"`
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is a read-only set of presets keyed by name.
type Catalog struct {
	byName map[string]Preset
}

// Defaults returns the embedded catalog.
func Defaults() *Catalog {
	c, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("presets: embedded defaults: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the defaults when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Defaults(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML and validates every preset's configuration.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("presets: %w", err)
	}
	c := &Catalog{byName: make(map[string]Preset, len(f.Presets))}
	for _, p := range f.Presets {
		if p.Name == "" {
			return nil, errors.New("presets: preset without a name")
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("presets: duplicate preset %q", p.Name)
		}
		if err := p.Config.Validate(); err != nil {
			return nil, fmt.Errorf("presets: %s: %w", p.Name, err)
		}
		c.byName[p.Name] = p
	}
	return c, nil
}

func (c *Catalog) Lookup(name string) (Preset, error) {
	p, ok := c.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	p.Config.Categories = append([]string(nil), p.Config.Categories...)
	return p, nil
}

// List returns presets sorted by name.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.byName))
	for _, p := range c.byName {
		p.Config.Categories = append([]string(nil), p.Config.Categories...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Overrides are the request fields a caller may set on top of a preset.
// Zero values keep the preset's setting.
type Overrides struct {
	Categories       []string
	ItemCount        int
	Mode             exam.Mode
	TimeLimitSeconds int
}

// Apply layers o over the preset named name. An empty name starts from a
// blank configuration so the request must be complete on its own.
func (c *Catalog) Apply(name string, o Overrides) (exam.TestConfiguration, error) {
	var cfg exam.TestConfiguration
	if name != "" {
		p, err := c.Lookup(name)
		if err != nil {
			return exam.TestConfiguration{}, err
		}
		cfg = p.Config
	}
	if len(o.Categories) > 0 {
		cfg.Categories = o.Categories
	}
	if o.ItemCount > 0 {
		cfg.ItemCount = o.ItemCount
	}
	if o.Mode != "" {
		if o.Mode == exam.ModeTutorial {
			cfg.TimeLimitSeconds = 0
		}
		cfg.Mode = o.Mode
	}
	if o.TimeLimitSeconds > 0 {
		cfg.TimeLimitSeconds = o.TimeLimitSeconds
	}
	return cfg, nil
}

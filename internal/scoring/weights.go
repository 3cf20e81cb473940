package scoring

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Weights holds the per-dimension multipliers of a sector.
type Weights struct {
	Presence   float64 `json:"presence" yaml:"presence"`
	Reputation float64 `json:"reputation" yaml:"reputation"`
	SEO        float64 `json:"seo" yaml:"seo"`
	Content    float64 `json:"content" yaml:"content"`
	Position   float64 `json:"position" yaml:"position"`
}

// NeutralWeights is applied to sectors missing from the table.
func NeutralWeights() Weights {
	return Weights{Presence: 1, Reputation: 1, SEO: 1, Content: 1, Position: 1}
}

// Get returns the multiplier of a single dimension.
func (w Weights) Get(dim Dimension) float64 {
	switch dim {
	case Presence:
		return w.Presence
	case Reputation:
		return w.Reputation
	case SEO:
		return w.SEO
	case Content:
		return w.Content
	case Position:
		return w.Position
	}
	return 0
}

// Validate rejects zero or negative multipliers.
func (w Weights) Validate() error {
	for _, dim := range Dimensions {
		if v := w.Get(dim); v <= 0 {
			return fmt.Errorf("%s weight must be positive, got %v", dim, v)
		}
	}
	return nil
}

// WeightTable maps a sector name to its weights. It is never modified after construction.
type WeightTable struct {
	sectors map[string]Weights
}

// NewWeightTable copies the given sectors into an immutable table.
func NewWeightTable(sectors map[string]Weights) (*WeightTable, error) {
	t := &WeightTable{sectors: make(map[string]Weights, len(sectors))}
	for name, w := range sectors {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("sector %q: %w", name, err)
		}
		t.sectors[name] = w
	}
	return t, nil
}

// DefaultWeightTable returns the built-in sector table.
func DefaultWeightTable() *WeightTable {
	t, err := NewWeightTable(defaultSectorWeights())
	if err != nil {
		panic(err)
	}
	return t
}

func defaultSectorWeights() map[string]Weights {
	return map[string]Weights{
		"restaurant":  {Presence: 1.1, Reputation: 1.3, SEO: 0.9, Content: 0.8, Position: 1.1},
		"hotel":       {Presence: 1.0, Reputation: 1.3, SEO: 1.1, Content: 0.9, Position: 1.1},
		"retail":      {Presence: 1.2, Reputation: 1.0, SEO: 1.0, Content: 0.8, Position: 1.0},
		"beauty":      {Presence: 1.1, Reputation: 1.2, SEO: 0.8, Content: 1.0, Position: 0.9},
		"health":      {Presence: 1.2, Reputation: 1.2, SEO: 1.0, Content: 0.8, Position: 0.9},
		"services":    {Presence: 0.9, Reputation: 1.0, SEO: 1.2, Content: 1.1, Position: 1.1},
		"automotive":  {Presence: 1.2, Reputation: 1.1, SEO: 0.9, Content: 0.7, Position: 1.0},
		"real-estate": {Presence: 0.8, Reputation: 1.0, SEO: 1.2, Content: 1.2, Position: 1.2},
		"craftsman":   {Presence: 1.2, Reputation: 1.2, SEO: 0.9, Content: 0.7, Position: 0.9},
	}
}

// For returns the weights of a sector. Matching is exact and case-sensitive.
func (t *WeightTable) For(sector string) Weights {
	if t == nil {
		return NeutralWeights()
	}
	if w, ok := t.sectors[sector]; ok {
		return w
	}
	return NeutralWeights()
}

// Sectors lists the configured sector names in sorted order.
func (t *WeightTable) Sectors() []string {
	names := make([]string, 0, len(t.sectors))
	for name := range t.sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type weightFile struct {
	Sectors map[string]Weights `yaml:"sectors"`
}

// LoadWeightTable reads a YAML file of sector weights and lays it over the built-in table.
// An empty path returns the defaults.
func LoadWeightTable(path string) (*WeightTable, error) {
	sectors := defaultSectorWeights()
	if path == "" {
		return NewWeightTable(sectors)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sector weights: %w", err)
	}

	var f weightFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sector weights %s: %w", path, err)
	}
	for name, w := range f.Sectors {
		sectors[name] = w
	}
	return NewWeightTable(sectors)
}

// Package testutil provides category-tree fixture generators and assertions.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// GeneratorConfig controls category generation.
type GeneratorConfig struct {
	Seed        int64        // Random seed for determinism (0 = use current time)
	IDPrefix    string       // Prefix for category IDs (default: "cat")
	Domain      model.Domain // Domain stamped on every record (default: tours)
	BaseTime    time.Time    // Base time for timestamps (default: fixed time)
	ActiveRatio float64      // Fraction of active categories (default: 1.0)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42, // Deterministic
		IDPrefix:    "cat",
		Domain:      model.DomainTour,
		BaseTime:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		ActiveRatio: 1.0,
	}
}

// Generator creates flat category fixtures with various tree shapes.
// Records are emitted parents-first in display order, the shape a data
// source hands to model.BuildForest.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	n   int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "cat"
	}
	if cfg.Domain == "" {
		cfg.Domain = model.DomainTour
	}
	if cfg.ActiveRatio <= 0 {
		cfg.ActiveRatio = 1.0
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) next(parentID string, position int) model.Category {
	id := fmt.Sprintf("%s-%d", g.cfg.IDPrefix, g.n)
	title := fmt.Sprintf("Category %d", g.n)
	ts := g.cfg.BaseTime.Add(time.Duration(g.n) * time.Hour)
	g.n++
	return model.Category{
		ID:        id,
		ParentID:  parentID,
		Domain:    g.cfg.Domain,
		Title:     title,
		Slug:      model.Slugify(title),
		Active:    g.rng.Float64() < g.cfg.ActiveRatio,
		Position:  position,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Chain creates a single path of size nodes, each the only child of the
// previous one.
func (g *Generator) Chain(size int) []model.Category {
	out := make([]model.Category, 0, size)
	parent := ""
	for i := 0; i < size; i++ {
		c := g.next(parent, 0)
		out = append(out, c)
		parent = c.ID
	}
	return out
}

// Wide creates size sibling roots with no children.
func (g *Generator) Wide(size int) []model.Category {
	out := make([]model.Category, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, g.next("", i))
	}
	return out
}

// Tree creates a single-root tree where every non-leaf node has breadth
// children, depth levels below the root.
func (g *Generator) Tree(depth, breadth int) []model.Category {
	if depth < 0 {
		depth = 0
	}
	if breadth < 1 {
		breadth = 1
	}
	root := g.next("", 0)
	out := []model.Category{root}
	var grow func(parentID string, level int)
	grow = func(parentID string, level int) {
		if level >= depth {
			return
		}
		for b := 0; b < breadth; b++ {
			c := g.next(parentID, b)
			out = append(out, c)
			grow(c.ID, level+1)
		}
	}
	grow(root.ID, 0)
	return out
}

// Random creates size nodes where each node's parent is either a root slot or
// a uniformly chosen earlier node. The result is always acyclic.
func (g *Generator) Random(size int) []model.Category {
	out := make([]model.Category, 0, size)
	childCount := make(map[string]int)
	for i := 0; i < size; i++ {
		parent := ""
		if i > 0 && g.rng.Intn(4) != 0 {
			parent = out[g.rng.Intn(i)].ID
		}
		c := g.next(parent, childCount[parent])
		childCount[parent]++
		out = append(out, c)
	}
	return out
}

// Scenario returns the A{B{D,E},C} forest used throughout the tree tests.
func Scenario() []*model.Category {
	leaf := func(id string) *model.Category {
		return &model.Category{ID: id, Title: id, Slug: strings.ToLower(id), Active: true, Children: []*model.Category{}}
	}
	b := leaf("B")
	b.Children = []*model.Category{leaf("D"), leaf("E")}
	a := leaf("A")
	a.Children = []*model.Category{b, leaf("C")}
	return []*model.Category{a}
}

// ToJSONL converts records to JSONL format (one JSON object per line).
func ToJSONL(records []model.Category) string {
	var sb strings.Builder
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// QuickTree builds a forest directly from Tree with the default generator.
func QuickTree(depth, breadth int) []*model.Category {
	return model.BuildForest(NewDefault().Tree(depth, breadth))
}

// QuickRandom builds a forest directly from Random with the default generator.
func QuickRandom(size int) []*model.Category {
	return model.BuildForest(NewDefault().Random(size))
}

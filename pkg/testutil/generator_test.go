package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

func TestChain(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		wantDepth int
	}{
		{"chain_1", 1, 0},
		{"chain_2", 2, 1},
		{"chain_5", 5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := NewDefault().Chain(tt.size)
			if len(recs) != tt.size {
				t.Fatalf("Chain(%d) = %d records", tt.size, len(recs))
			}
			forest := model.BuildForest(recs)
			if len(forest) != 1 {
				t.Fatalf("Chain should have one root, got %d", len(forest))
			}
			maxDepth := 0
			model.Walk(forest, func(_ *model.Category, d int) bool {
				if d > maxDepth {
					maxDepth = d
				}
				return true
			})
			if maxDepth != tt.wantDepth {
				t.Errorf("Chain(%d) depth = %d, want %d", tt.size, maxDepth, tt.wantDepth)
			}
		})
	}
}

func TestTree(t *testing.T) {
	recs := NewDefault().Tree(2, 3)
	// 1 + 3 + 9
	if len(recs) != 13 {
		t.Fatalf("Tree(2,3) = %d records, want 13", len(recs))
	}
	forest := model.BuildForest(recs)
	AssertValidForest(t, forest)
	AssertCount(t, forest, 13)
	if got := model.CountDescendants(forest[0]); got != 12 {
		t.Errorf("root descendants = %d, want 12", got)
	}
}

func TestRandomIsAcyclicAndDeterministic(t *testing.T) {
	a := New(DefaultConfig()).Random(50)
	b := New(DefaultConfig()).Random(50)
	AssertNoDuplicateIDs(t, a)
	if strings.Join(IDsOf(a), ",") != strings.Join(IDsOf(b), ",") {
		t.Error("same seed should produce the same ids")
	}
	for i := range a {
		if a[i].ParentID != b[i].ParentID {
			t.Fatalf("record %d parent differs: %q vs %q", i, a[i].ParentID, b[i].ParentID)
		}
	}
	forest := model.BuildForest(a)
	AssertValidForest(t, forest)
	AssertCount(t, forest, 50)
}

func TestScenario(t *testing.T) {
	forest := Scenario()
	AssertValidForest(t, forest)
	AssertParent(t, forest, "A", "")
	AssertParent(t, forest, "B", "A")
	AssertParent(t, forest, "C", "A")
	AssertParent(t, forest, "E", "B")
}

func TestToJSONL(t *testing.T) {
	recs := NewDefault().Wide(3)
	out := ToJSONL(recs)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"id":"cat-0"`) {
		t.Errorf("first line missing id: %s", lines[0])
	}
}

func TestActiveRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActiveRatio = 0.5
	recs := New(cfg).Wide(200)
	active := 0
	for _, r := range recs {
		if r.Active {
			active++
		}
	}
	if active == 0 || active == len(recs) {
		t.Errorf("expected a mix of active and inactive, got %d/%d active", active, len(recs))
	}
}

package model

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func leaf(id string) *Category {
	return &Category{ID: id, Title: id, Children: []*Category{}}
}

func node(id string, children ...*Category) *Category {
	c := leaf(id)
	c.Children = append(c.Children, children...)
	return c
}

// A{B{D,E},C}
func scenario() []*Category {
	return []*Category{node("A", node("B", leaf("D"), leaf("E")), leaf("C"))}
}

func TestContains(t *testing.T) {
	forest := scenario()
	a := forest[0]
	b := a.Children[0]
	c := a.Children[1]

	tests := []struct {
		name string
		node *Category
		id   string
		want bool
	}{
		{"self", a, "A", true},
		{"grandchild", a, "E", true},
		{"child", b, "D", true},
		{"sibling subtree", c, "E", false},
		{"ancestor not contained", b, "A", false},
		{"missing", a, "Z", false},
		{"empty id", a, "", false},
		{"nil node", nil, "A", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.node, tt.id); got != tt.want {
				t.Errorf("Contains(%v, %q) = %v, want %v", tt.node != nil, tt.id, got, tt.want)
			}
		})
	}
}

func TestContainsTerminatesOnCycle(t *testing.T) {
	a := leaf("A")
	b := leaf("B")
	a.Children = []*Category{b}
	b.Children = []*Category{a}

	if Contains(a, "Z") {
		t.Error("cyclic search for a missing id should be false")
	}
	if !Contains(a, "B") {
		t.Error("cyclic search should still find B")
	}
}

func TestContainsDepthBound(t *testing.T) {
	root := leaf("n0")
	cur := root
	for i := 1; i <= MaxTreeDepth+10; i++ {
		next := leaf(fmt.Sprintf("n%d", i))
		cur.Children = []*Category{next}
		cur = next
	}
	if Contains(root, cur.ID) {
		t.Error("nodes beyond MaxTreeDepth should not be reachable")
	}
	if !Contains(root, "n10") {
		t.Error("shallow node should be found")
	}
}

func TestPathTo(t *testing.T) {
	forest := scenario()
	path := PathTo(forest, "E")
	got := make([]string, len(path))
	for i, p := range path {
		got[i] = p.ID
	}
	if fmt.Sprint(got) != "[A B E]" {
		t.Errorf("PathTo(E) = %v, want [A B E]", got)
	}
	if PathTo(forest, "Z") != nil {
		t.Error("PathTo missing id should be nil")
	}
	if p := PathTo(forest, "A"); len(p) != 1 {
		t.Errorf("PathTo(root) length = %d, want 1", len(p))
	}
}

func TestFindAndCount(t *testing.T) {
	forest := scenario()
	if c := Find(forest, "D"); c == nil || c.ID != "D" {
		t.Errorf("Find(D) = %v", c)
	}
	if Find(forest, "nope") != nil {
		t.Error("Find should return nil for a missing id")
	}
	if got := Count(forest); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
	if got := CountDescendants(forest[0]); got != 4 {
		t.Errorf("CountDescendants(A) = %d, want 4", got)
	}
	if got := fmt.Sprint(IDs(forest)); got != "[A B D E C]" {
		t.Errorf("IDs = %s", got)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	visited := 0
	Walk(scenario(), func(c *Category, _ int) bool {
		visited++
		return c.ID != "B"
	})
	if visited != 2 {
		t.Errorf("visited %d nodes, want 2", visited)
	}
}

func TestNormalize(t *testing.T) {
	forest := []*Category{{ID: "A", Title: "A", Children: []*Category{{ID: "B", Title: "B"}}}}
	Normalize(forest)
	if forest[0].Children[0].Children == nil {
		t.Error("leaf children should be an empty slice after Normalize")
	}
	if Normalize(nil) == nil {
		t.Error("Normalize(nil) should return an empty forest")
	}
}

func TestValidateForest(t *testing.T) {
	dup := []*Category{node("A", leaf("B")), leaf("B")}
	if err := ValidateForest(dup); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}

	a := leaf("A")
	a.Children = []*Category{a}
	if err := ValidateForest([]*Category{a}); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}

	empty := []*Category{{Title: "x"}}
	if err := ValidateForest(empty); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}

	if err := ValidateForest(scenario()); err != nil {
		t.Errorf("scenario should be valid: %v", err)
	}
}

func TestBuildForest(t *testing.T) {
	flat := []Category{
		{ID: "A", Title: "A"},
		{ID: "B", ParentID: "A", Title: "B"},
		{ID: "C", ParentID: "A", Title: "C"},
		{ID: "D", ParentID: "B", Title: "D"},
		{ID: "O", ParentID: "missing", Title: "orphan"},
		{ID: "B", ParentID: "C", Title: "dup"},
	}
	forest := BuildForest(flat)
	if len(forest) != 2 {
		t.Fatalf("expected 2 roots (A and orphan), got %d", len(forest))
	}
	if forest[0].ID != "A" || forest[1].ID != "O" {
		t.Errorf("root order = %s,%s", forest[0].ID, forest[1].ID)
	}
	a := forest[0]
	if len(a.Children) != 2 || a.Children[0].ID != "B" || a.Children[1].ID != "C" {
		t.Errorf("A children order wrong: %v", IDs(a.Children))
	}
	if Find(forest, "B").Title != "B" {
		t.Error("duplicate id should keep the first record")
	}
	if err := ValidateForest(forest); err != nil {
		t.Errorf("built forest invalid: %v", err)
	}
}

func TestBuildForestBreaksCycles(t *testing.T) {
	flat := []Category{
		{ID: "A", ParentID: "B", Title: "A"},
		{ID: "B", ParentID: "A", Title: "B"},
		{ID: "S", ParentID: "S", Title: "self"},
		{ID: "X", ParentID: "A", Title: "X"},
	}
	forest := BuildForest(flat)
	if got := Count(forest); got != 4 {
		t.Errorf("every record should appear once, got %d", got)
	}
	if err := ValidateForest(forest); err != nil {
		t.Errorf("forest should be acyclic after build: %v", err)
	}
	if Find(forest, "X") == nil || len(PathTo(forest, "X")) != 2 {
		t.Error("X should hang under A")
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	forest := scenario()
	flat := Flatten(forest)
	if len(flat) != 5 {
		t.Fatalf("Flatten = %d records, want 5", len(flat))
	}
	if flat[2].ID != "D" || flat[2].ParentID != "B" || flat[2].Position != 0 {
		t.Errorf("unexpected D record: %+v", flat[2])
	}
	rebuilt := BuildForest(flat)
	if fmt.Sprint(IDs(rebuilt)) != fmt.Sprint(IDs(forest)) {
		t.Errorf("round trip order %v != %v", IDs(rebuilt), IDs(forest))
	}
}

// genFlat draws an acyclic flat record list: each record's parent is empty or
// an earlier record.
func genFlat(t *rapid.T) []Category {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	out := make([]Category, n)
	for i := 0; i < n; i++ {
		out[i] = Category{ID: fmt.Sprintf("c%d", i), Title: fmt.Sprintf("C%d", i)}
		if i > 0 && rapid.Bool().Draw(t, fmt.Sprintf("hasParent%d", i)) {
			out[i].ParentID = fmt.Sprintf("c%d", rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i)))
		}
	}
	return out
}

func TestBuildForestProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		flat := genFlat(t)
		forest := BuildForest(flat)
		if err := ValidateForest(forest); err != nil {
			t.Fatalf("invalid forest: %v", err)
		}
		if Count(forest) != len(flat) {
			t.Fatalf("count %d != %d", Count(forest), len(flat))
		}
		for _, rec := range flat {
			path := PathTo(forest, rec.ID)
			if path == nil {
				t.Fatalf("%s missing", rec.ID)
			}
			for _, anc := range path {
				if !Contains(anc, rec.ID) {
					t.Fatalf("ancestor %s does not contain %s", anc.ID, rec.ID)
				}
			}
			if rec.ParentID != "" && path[len(path)-2].ID != rec.ParentID {
				t.Fatalf("%s parent = %s, want %s", rec.ID, path[len(path)-2].ID, rec.ParentID)
			}
		}
	})
}

func TestBuildForestNeverLosesRecords(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		flat := make([]Category, n)
		for i := range flat {
			flat[i] = Category{
				ID:       fmt.Sprintf("c%d", i),
				Title:    "x",
				ParentID: fmt.Sprintf("c%d", rapid.IntRange(0, n).Draw(t, fmt.Sprintf("p%d", i))),
			}
		}
		forest := BuildForest(flat)
		if err := ValidateForest(forest); err != nil {
			t.Fatalf("invalid forest from arbitrary parents: %v", err)
		}
		if Count(forest) != n {
			t.Fatalf("count %d != %d", Count(forest), n)
		}
	})
}

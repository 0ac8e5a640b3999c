package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// AssertCount verifies the expected number of nodes in a forest.
func AssertCount(t *testing.T, forest []*model.Category, expected int) {
	t.Helper()
	if got := model.Count(forest); got != expected {
		t.Errorf("expected %d categories, got %d", expected, got)
	}
}

// AssertNoDuplicateIDs verifies all record IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, records []model.Category) {
	t.Helper()
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.ID] {
			t.Errorf("duplicate category ID: %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

// AssertValidForest verifies the forest satisfies the structural invariants.
func AssertValidForest(t *testing.T, forest []*model.Category) {
	t.Helper()
	if err := model.ValidateForest(forest); err != nil {
		t.Errorf("forest invalid: %v", err)
	}
}

// AssertParent verifies that childID sits directly under parentID.
// An empty parentID means childID must be a root.
func AssertParent(t *testing.T, forest []*model.Category, childID, parentID string) {
	t.Helper()
	path := model.PathTo(forest, childID)
	if path == nil {
		t.Errorf("category %s not found", childID)
		return
	}
	if parentID == "" {
		if len(path) != 1 {
			t.Errorf("expected %s to be a root, path length %d", childID, len(path))
		}
		return
	}
	if len(path) < 2 || path[len(path)-2].ID != parentID {
		t.Errorf("expected parent of %s to be %s", childID, parentID)
	}
}

// WriteJSONLFile writes records as JSONL to path, creating parent dirs.
func WriteJSONLFile(t *testing.T, path string, records []model.Category) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSONL(records)), 0644); err != nil {
		t.Fatalf("failed to write categories file: %v", err)
	}
}

// IDsOf returns the ids of records in order.
func IDsOf(records []model.Category) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}

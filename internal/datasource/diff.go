package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// ForestDiff describes what changed between two snapshots of one domain.
type ForestDiff struct {
	// Added contains ids present only in the new snapshot
	Added []string
	// Removed contains ids present only in the old snapshot
	Removed []string
	// Changed lists categories whose fields or parent differ
	Changed []FieldDifference
	// CountOld is the number of categories in the old snapshot
	CountOld int
	// CountNew is the number of categories in the new snapshot
	CountNew int
}

// FieldDifference records which fields of one category changed.
type FieldDifference struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
}

// HasChanges returns true if the snapshots differ in any way
func (d ForestDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// Summary returns a one-line summary suitable for a status bar.
func (d ForestDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("no changes (%d categories)", d.CountNew)
	}
	var parts []string
	if len(d.Added) > 0 {
		parts = append(parts, fmt.Sprintf("+%d", len(d.Added)))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("-%d", len(d.Removed)))
	}
	if len(d.Changed) > 0 {
		parts = append(parts, fmt.Sprintf("~%d", len(d.Changed)))
	}
	return strings.Join(parts, " ") + fmt.Sprintf(" (%d categories)", d.CountNew)
}

// CompareForests diffs two forests by id. Parent changes count as a change
// to the "parent" field; sibling order is reported as "position".
func CompareForests(prev, next []*model.Category) ForestDiff {
	before := index(prev)
	after := index(next)

	diff := ForestDiff{CountOld: len(before), CountNew: len(after)}
	for id := range after {
		if _, ok := before[id]; !ok {
			diff.Added = append(diff.Added, id)
		}
	}
	for id, a := range before {
		b, ok := after[id]
		if !ok {
			diff.Removed = append(diff.Removed, id)
			continue
		}
		if fields := changedFields(a, b); len(fields) > 0 {
			diff.Changed = append(diff.Changed, FieldDifference{ID: id, Fields: fields})
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool { return diff.Changed[i].ID < diff.Changed[j].ID })
	return diff
}

func index(forest []*model.Category) map[string]model.Category {
	out := make(map[string]model.Category)
	for _, c := range model.Flatten(forest) {
		out[c.ID] = c
	}
	return out
}

func changedFields(a, b model.Category) []string {
	var fields []string
	if a.Title != b.Title {
		fields = append(fields, "title")
	}
	if a.Slug != b.Slug {
		fields = append(fields, "slug")
	}
	if a.Active != b.Active {
		fields = append(fields, "active")
	}
	if a.Description != b.Description {
		fields = append(fields, "description")
	}
	if a.ParentID != b.ParentID {
		fields = append(fields, "parent")
	}
	if a.Position != b.Position {
		fields = append(fields, "position")
	}
	return fields
}

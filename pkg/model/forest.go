package model

import (
	"fmt"
)

// MaxTreeDepth bounds every recursive walk. Real category trees are a handful
// of levels deep; anything beyond this is treated as malformed input.
const MaxTreeDepth = 256

// Normalize replaces nil Children slices with empty ones throughout the forest
// so has-children checks are uniform. It returns the forest for chaining.
func Normalize(forest []*Category) []*Category {
	if forest == nil {
		forest = []*Category{}
	}
	seen := make(map[*Category]bool)
	var visit func(c *Category, depth int)
	visit = func(c *Category, depth int) {
		if c == nil || seen[c] || depth > MaxTreeDepth {
			return
		}
		seen[c] = true
		if c.Children == nil {
			c.Children = []*Category{}
		}
		for _, child := range c.Children {
			visit(child, depth+1)
		}
	}
	for _, root := range forest {
		visit(root, 0)
	}
	return forest
}

// Contains reports whether id is node itself or appears anywhere in its
// subtree. Terminates on cyclic or shared-pointer input.
func Contains(node *Category, id string) bool {
	if node == nil || id == "" {
		return false
	}
	seen := make(map[*Category]bool)
	var search func(n *Category, depth int) bool
	search = func(n *Category, depth int) bool {
		if n == nil || seen[n] || depth > MaxTreeDepth {
			return false
		}
		if n.ID == id {
			return true
		}
		seen[n] = true
		for _, child := range n.Children {
			if search(child, depth+1) {
				return true
			}
		}
		return false
	}
	return search(node, 0)
}

// Find returns the first category with the given id, or nil.
func Find(forest []*Category, id string) *Category {
	var found *Category
	Walk(forest, func(c *Category, _ int) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// PathTo returns the root-to-target path (both inclusive), or nil when id is
// not in the forest.
func PathTo(forest []*Category, id string) []*Category {
	if id == "" {
		return nil
	}
	seen := make(map[*Category]bool)
	var path []*Category
	var search func(n *Category, depth int) bool
	search = func(n *Category, depth int) bool {
		if n == nil || seen[n] || depth > MaxTreeDepth {
			return false
		}
		seen[n] = true
		path = append(path, n)
		if n.ID == id {
			return true
		}
		for _, child := range n.Children {
			if search(child, depth+1) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	for _, root := range forest {
		if search(root, 0) {
			return path
		}
	}
	return nil
}

// Walk visits every category depth-first in display order. fn receives the
// depth (0 for roots) and returns false to stop the walk. Each node is
// visited at most once.
func Walk(forest []*Category, fn func(c *Category, depth int) bool) {
	seen := make(map[*Category]bool)
	var visit func(c *Category, depth int) bool
	visit = func(c *Category, depth int) bool {
		if c == nil || seen[c] || depth > MaxTreeDepth {
			return true
		}
		seen[c] = true
		if !fn(c, depth) {
			return false
		}
		for _, child := range c.Children {
			if !visit(child, depth+1) {
				return false
			}
		}
		return true
	}
	for _, root := range forest {
		if !visit(root, 0) {
			return
		}
	}
}

// CountDescendants returns the number of nodes below node (excluding node).
func CountDescendants(node *Category) int {
	if node == nil {
		return 0
	}
	n := 0
	Walk(node.Children, func(*Category, int) bool {
		n++
		return true
	})
	return n
}

// Count returns the number of nodes in the forest.
func Count(forest []*Category) int {
	n := 0
	Walk(forest, func(*Category, int) bool {
		n++
		return true
	})
	return n
}

// IDs returns every id in the forest in depth-first display order.
func IDs(forest []*Category) []string {
	var ids []string
	Walk(forest, func(c *Category, _ int) bool {
		ids = append(ids, c.ID)
		return true
	})
	return ids
}

// ValidateForest checks the structural invariants of a forest: non-empty and
// globally unique ids, no node reachable from itself, bounded depth, and valid
// per-node fields. The first violation is returned.
func ValidateForest(forest []*Category) error {
	ids := make(map[string]bool)
	onPath := make(map[*Category]bool)
	var check func(c *Category, depth int) error
	check = func(c *Category, depth int) error {
		if c == nil {
			return nil
		}
		if depth > MaxTreeDepth {
			return fmt.Errorf("%w: at %s", ErrTooDeep, c.ID)
		}
		if onPath[c] {
			return fmt.Errorf("%w: %s", ErrCycle, c.ID)
		}
		if c.ID == "" {
			return ErrEmptyID
		}
		if ids[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
		}
		ids[c.ID] = true
		if err := c.Validate(); err != nil {
			return err
		}
		onPath[c] = true
		defer delete(onPath, c)
		for _, child := range c.Children {
			if err := check(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range forest {
		if err := check(root, 0); err != nil {
			return err
		}
	}
	return nil
}

// BuildForest assembles flat records (each naming its parent by ParentID) into
// a forest. Input order is preserved as sibling order. Records whose parent is
// missing become roots. A record whose parent chain loops back to itself is
// attached as a root so every record appears exactly once. Duplicate ids keep
// the first occurrence.
func BuildForest(flat []Category) []*Category {
	nodes := make(map[string]*Category, len(flat))
	order := make([]*Category, 0, len(flat))
	for i := range flat {
		rec := flat[i]
		if rec.ID == "" || nodes[rec.ID] != nil {
			continue
		}
		node := rec.Clone()
		nodes[node.ID] = node
		order = append(order, node)
	}

	// A node is in a cycle if walking ParentID from it revisits an id.
	inCycle := func(start *Category) bool {
		visited := map[string]bool{start.ID: true}
		cur := start.ParentID
		for steps := 0; cur != "" && steps <= len(nodes); steps++ {
			if visited[cur] {
				return cur == start.ID
			}
			visited[cur] = true
			p, ok := nodes[cur]
			if !ok {
				return false
			}
			cur = p.ParentID
		}
		return false
	}

	forest := []*Category{}
	for _, node := range order {
		parent, ok := nodes[node.ParentID]
		if node.ParentID == "" || !ok || node.ParentID == node.ID || inCycle(node) {
			forest = append(forest, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return forest
}

// Flatten is the inverse of BuildForest: it returns childless copies of every
// node in display order with ParentID and Position set from the tree shape.
func Flatten(forest []*Category) []Category {
	var out []Category
	seen := make(map[*Category]bool)
	var visit func(parentID string, nodes []*Category, depth int)
	visit = func(parentID string, nodes []*Category, depth int) {
		if depth > MaxTreeDepth {
			return
		}
		for i, n := range nodes {
			if n == nil || seen[n] {
				continue
			}
			seen[n] = true
			rec := *n.Clone()
			rec.ParentID = parentID
			rec.Position = i
			rec.Children = nil
			out = append(out, rec)
			visit(n.ID, n.Children, depth+1)
		}
	}
	visit("", forest, 0)
	return out
}

package ui

import (
	"strings"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// NodeProps is everything a parent hands to a NodeView. Signals travel down
// unchanged; each NodeView decides for itself what they mean for its node.
type NodeProps struct {
	Node        *model.Category
	Level       int
	HighlightID string
	CollapseAll Signal
	ExpandTo    Signal
	OnDelete    func(id string)
}

// NodeView is the mounted view of one category and its subtree. It owns the
// node's collapsed flag, which starts expanded and lives as long as the view
// stays mounted under the same id.
//
// Children stay mounted while the node is collapsed: they keep their own
// state and still receive signals, only rendering skips them.
type NodeView struct {
	props    NodeProps
	parent   *NodeView
	children []*NodeView
	mounted  bool

	collapsed bool

	// Last signal sequence acted on, per command kind.
	seenCollapse uint64
	seenExpand   uint64
}

// newNodeView mounts a view for props. The view baselines to the signals it
// is mounted with, so a command published before it existed never fires.
func newNodeView(parent *NodeView, props NodeProps) *NodeView {
	v := &NodeView{
		parent:       parent,
		mounted:      true,
		seenCollapse: props.CollapseAll.Seq,
		seenExpand:   props.ExpandTo.Seq,
		props:        props,
	}
	v.reconcileChildren()
	return v
}

// SetProps updates the view with new props from its parent, acts on any
// signal it has not seen yet and reconciles its children.
func (v *NodeView) SetProps(p NodeProps) {
	if p.Node == nil {
		return
	}
	if v.props.Node != nil && v.props.Node.ID != p.Node.ID {
		// Different category under this view: start over.
		v.collapsed = false
		v.seenCollapse = p.CollapseAll.Seq
		v.seenExpand = p.ExpandTo.Seq
		v.unmountChildren()
	}
	v.props = p

	if p.CollapseAll.Seq > v.seenCollapse {
		v.seenCollapse = p.CollapseAll.Seq
		if p.Node.HasChildren() {
			v.collapsed = true
		}
	}
	if p.ExpandTo.Seq > v.seenExpand {
		v.seenExpand = p.ExpandTo.Seq
		if model.Contains(p.Node, p.ExpandTo.TargetID) {
			v.collapsed = false
		}
	}

	v.reconcileChildren()
}

// reconcileChildren matches mounted child views to the node's children by
// id, mounting new ones and unmounting those that disappeared.
func (v *NodeView) reconcileChildren() {
	node := v.props.Node
	if node == nil || v.props.Level >= model.MaxTreeDepth {
		v.unmountChildren()
		return
	}

	existing := make(map[string]*NodeView, len(v.children))
	for _, c := range v.children {
		existing[c.ID()] = c
	}

	next := make([]*NodeView, 0, len(node.Children))
	for _, child := range node.Children {
		if child == nil || v.isAncestorOrSelf(child) {
			continue
		}
		props := NodeProps{
			Node:        child,
			Level:       v.props.Level + 1,
			HighlightID: v.props.HighlightID,
			CollapseAll: v.props.CollapseAll,
			ExpandTo:    v.props.ExpandTo,
			OnDelete:    v.props.OnDelete,
		}
		if cv, ok := existing[child.ID]; ok {
			delete(existing, child.ID)
			cv.SetProps(props)
			next = append(next, cv)
			continue
		}
		next = append(next, newNodeView(v, props))
	}
	for _, gone := range existing {
		gone.unmount()
	}
	v.children = next
}

// isAncestorOrSelf guards against cyclic input: a category already on the
// mounted path is never mounted again below itself.
func (v *NodeView) isAncestorOrSelf(c *model.Category) bool {
	for cur := v; cur != nil; cur = cur.parent {
		if cur.props.Node == c {
			return true
		}
	}
	return false
}

func (v *NodeView) unmount() {
	v.unmountChildren()
	v.mounted = false
	v.parent = nil
}

func (v *NodeView) unmountChildren() {
	for _, c := range v.children {
		c.unmount()
	}
	v.children = nil
}

// Toggle flips the collapsed flag. Leaves have nothing to toggle.
func (v *NodeView) Toggle() {
	if v.props.Node.HasChildren() {
		v.collapsed = !v.collapsed
	}
}

// Delete asks the owner to delete this node. The view itself changes nothing.
func (v *NodeView) Delete() {
	if v.props.OnDelete != nil {
		v.props.OnDelete(v.ID())
	}
}

// ID returns the category id, or "" for an empty view.
func (v *NodeView) ID() string {
	if v.props.Node == nil {
		return ""
	}
	return v.props.Node.ID
}

func (v *NodeView) Node() *model.Category { return v.props.Node }
func (v *NodeView) Level() int            { return v.props.Level }
func (v *NodeView) IsCollapsed() bool     { return v.collapsed }
func (v *NodeView) IsMounted() bool       { return v.mounted }
func (v *NodeView) Children() []*NodeView { return v.children }
func (v *NodeView) Parent() *NodeView     { return v.parent }

// IsHighlighted reports whether this node is the tree's highlight target.
func (v *NodeView) IsHighlighted() bool {
	return v.props.HighlightID != "" && v.props.HighlightID == v.ID()
}

// HasToggle reports whether the node shows an expand/collapse affordance.
func (v *NodeView) HasToggle() bool {
	return v.props.Node.HasChildren()
}

// walk visits this view and every mounted descendant, collapsed or not.
func (v *NodeView) walk(fn func(*NodeView)) {
	fn(v)
	for _, c := range v.children {
		c.walk(fn)
	}
}

// rowParts holds the pieces of a rendered header row before width clamping.
type rowParts struct {
	glyph   string
	level   string
	title   string
	summary string
	status  string
}

// header builds the row pieces for this node: toggle glyph, level badge,
// title, child-count summary and status badge.
func (v *NodeView) header(t Theme) rowParts {
	node := v.props.Node
	var p rowParts

	switch {
	case !node.HasChildren():
		p.glyph = "  "
	case v.collapsed:
		p.glyph = t.PrimaryBold.Render("▸") + " "
	default:
		p.glyph = t.PrimaryBold.Render("▾") + " "
	}

	p.level = RenderLevelBadge(v.props.Level, t)
	p.title = node.Title
	if strings.TrimSpace(p.title) == "" {
		p.title = node.ID
	}

	if n := len(node.Children); n > 0 {
		total := model.CountDescendants(node)
		summary := pluralize(n, "child", "children")
		if total != n {
			summary += " · " + pluralize(total, "item", "items")
		}
		p.summary = t.MutedText.Render("(" + summary + ")")
	}
	p.status = RenderStatusBadge(node.Active)
	return p
}

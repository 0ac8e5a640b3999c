package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/metrics"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// Links derives the per-node navigation targets for one tree.
type Links struct {
	BasePath string
}

// Detail returns {basePath}/detail/{id}.
func (l Links) Detail(id string) string {
	return strings.TrimRight(l.BasePath, "/") + "/detail/" + id
}

// Edit returns {basePath}/edit/{id}.
func (l Links) Edit(id string) string {
	return strings.TrimRight(l.BasePath, "/") + "/edit/" + id
}

// TreeViewOptions configures a TreeView.
type TreeViewOptions struct {
	Title    string
	BasePath string
	Theme    Theme
	// Bus lets a caller share a bus it already handed to a toolbar.
	// A new bus is created when nil.
	Bus      *CommandBus
	OnDelete func(id string)
}

// flatRow is one visible line of the tree.
type flatRow struct {
	view   *NodeView
	prefix string
}

// TreeView composes a forest of categories into NodeViews, owns the command
// bus subscription and the highlight id, and keeps a flattened list of the
// visible rows for cursor navigation and windowed rendering.
type TreeView struct {
	title    string
	theme    Theme
	links    Links
	bus      *CommandBus
	sub      *Subscription
	onDelete func(id string)

	data        []*model.Category
	roots       []*NodeView
	highlightID string
	dimmed      map[string]bool

	// Current signal per command kind, threaded to the roots on every pass.
	collapseSig Signal
	expandSig   Signal

	flat   []flatRow
	cursor int
	offset int
	width  int
	height int
}

// NewTreeView creates an unmounted tree view.
func NewTreeView(opts TreeViewOptions) *TreeView {
	bus := opts.Bus
	if bus == nil {
		bus = NewCommandBus()
	}
	theme := opts.Theme
	if theme.Renderer == nil {
		theme = DefaultTheme(lipgloss.DefaultRenderer())
	}
	return &TreeView{
		title:    opts.Title,
		theme:    theme,
		links:    Links{BasePath: opts.BasePath},
		bus:      bus,
		onDelete: opts.OnDelete,
		data:     []*model.Category{},
	}
}

// Bus returns the command bus owned by this tree.
func (tv *TreeView) Bus() *CommandBus { return tv.bus }

// Links returns the link builder for this tree's base path.
func (tv *TreeView) Links() Links { return tv.links }

// Title returns the tree's display title.
func (tv *TreeView) Title() string { return tv.title }

// Mounted reports whether the view currently holds a bus subscription.
func (tv *TreeView) Mounted() bool { return tv.sub != nil }

// SubscriberCount reports the number of live subscriptions on the bus.
func (tv *TreeView) SubscriberCount() int { return tv.bus.SubscriberCount() }

// Mount subscribes to the bus, mounts node views for the current data and
// returns the command that listens for the first batch. Mounting an already
// mounted view is a no-op.
func (tv *TreeView) Mount() tea.Cmd {
	if tv.sub != nil {
		return nil
	}
	tv.sub = tv.bus.Subscribe()
	tv.reconcile()
	debug.Log("tree %q mounted (%d subscribers)", tv.title, tv.bus.SubscriberCount())
	return Listen(tv.sub)
}

// Listen returns the command waiting for the next batch, or nil when the
// view is not mounted.
func (tv *TreeView) Listen() tea.Cmd {
	if tv.sub == nil {
		return nil
	}
	return Listen(tv.sub)
}

// Unmount closes the subscription and drops every node view along with its
// collapsed state.
func (tv *TreeView) Unmount() {
	if tv.sub == nil {
		return
	}
	tv.sub.Close()
	tv.sub = nil
	for _, r := range tv.roots {
		r.unmount()
	}
	tv.roots = nil
	tv.flat = nil
	debug.Log("tree %q unmounted (%d subscribers)", tv.title, tv.bus.SubscriberCount())
}

// SetData replaces the forest. Views for ids that survive keep their state;
// the cursor stays on the same id when it is still visible.
func (tv *TreeView) SetData(forest []*model.Category) {
	if forest == nil {
		forest = []*model.Category{}
	}
	selected := tv.SelectedID()
	tv.data = forest
	tv.reconcile()
	if selected != "" {
		tv.SelectByID(selected)
	}
}

// Data returns the forest currently shown.
func (tv *TreeView) Data() []*model.Category { return tv.data }

// SetHighlight marks id for visual confirmation. It never changes any
// node's collapsed state.
func (tv *TreeView) SetHighlight(id string) {
	tv.highlightID = id
	for _, r := range tv.roots {
		r.walk(func(v *NodeView) { v.props.HighlightID = id })
	}
}

// ClearHighlight removes the highlight.
func (tv *TreeView) ClearHighlight() { tv.SetHighlight("") }

// HighlightID returns the highlighted id, or "".
func (tv *TreeView) HighlightID() string { return tv.highlightID }

// SetOnDelete sets the callback invoked when a node asks to be deleted.
func (tv *TreeView) SetOnDelete(fn func(id string)) {
	tv.onDelete = fn
	for _, r := range tv.roots {
		r.walk(func(v *NodeView) { v.props.OnDelete = fn })
	}
}

// SetDimmed marks ids rendered as context only (ancestors of filter matches).
func (tv *TreeView) SetDimmed(ids map[string]bool) {
	tv.dimmed = ids
}

// SetSize sets the viewport dimensions.
func (tv *TreeView) SetSize(width, height int) {
	tv.width = width
	tv.height = height
	tv.ensureCursorVisible()
}

// Update drains the mailbox on a CommandsMsg for this tree's subscription and
// re-arms the listener. A wake-up whose commands a Flush already applied is a
// no-op. Messages from an older subscription are dropped.
func (tv *TreeView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case CommandsMsg:
		if tv.sub == nil || msg.Sub != tv.sub {
			return nil
		}
		tv.apply(append(msg.Commands, tv.sub.Drain()...))
		return Listen(tv.sub)
	}
	return nil
}

// Flush applies any queued commands immediately instead of waiting for the
// listener to deliver them.
func (tv *TreeView) Flush() {
	if tv.sub == nil {
		return
	}
	tv.apply(tv.sub.Drain())
}

// apply processes commands one at a time in publish order, each as its own
// pass over the tree.
func (tv *TreeView) apply(cmds []Command) {
	if len(cmds) == 0 {
		return
	}
	defer metrics.Timer(metrics.CommandApply)()

	selected := tv.selectedView()
	for _, c := range cmds {
		switch c.Kind {
		case CommandCollapseAll:
			tv.collapseSig = Signal{Seq: c.Seq}
		case CommandExpandToTarget:
			tv.expandSig = Signal{Seq: c.Seq, TargetID: c.TargetID}
		default:
			continue
		}
		debug.Log("tree %q: %s %s (seq %d)", tv.title, c.Kind, c.TargetID, c.Seq)
		tv.reconcileRoots()
	}
	tv.rebuildFlatList()
	tv.restoreCursor(selected)
}

func (tv *TreeView) rootProps(node *model.Category) NodeProps {
	return NodeProps{
		Node:        node,
		Level:       0,
		HighlightID: tv.highlightID,
		CollapseAll: tv.collapseSig,
		ExpandTo:    tv.expandSig,
		OnDelete:    tv.onDelete,
	}
}

// reconcile re-syncs the mounted views with data and rebuilds the flat list.
// Nothing is mounted while the tree itself is unmounted.
func (tv *TreeView) reconcile() {
	if tv.sub == nil {
		return
	}
	tv.reconcileRoots()
	tv.rebuildFlatList()
}

func (tv *TreeView) reconcileRoots() {
	existing := make(map[string]*NodeView, len(tv.roots))
	for _, r := range tv.roots {
		existing[r.ID()] = r
	}
	next := make([]*NodeView, 0, len(tv.data))
	for _, node := range tv.data {
		if node == nil {
			continue
		}
		props := tv.rootProps(node)
		if v, ok := existing[node.ID]; ok {
			delete(existing, node.ID)
			v.SetProps(props)
			next = append(next, v)
			continue
		}
		next = append(next, newNodeView(nil, props))
	}
	for _, gone := range existing {
		gone.unmount()
	}
	tv.roots = next
}

// rebuildFlatList rebuilds the flattened list of visible rows. Children of a
// collapsed node stay mounted but are not listed.
func (tv *TreeView) rebuildFlatList() {
	tv.flat = tv.flat[:0]
	for i, r := range tv.roots {
		tv.appendVisible(r, "", i == len(tv.roots)-1, true)
	}
	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
	tv.ensureCursorVisible()
}

func (tv *TreeView) appendVisible(v *NodeView, indent string, isLast, isRoot bool) {
	var branch, childIndent string
	switch {
	case isRoot:
		branch, childIndent = "", ""
	case isLast:
		branch, childIndent = indent+"└── ", indent+"    "
	default:
		branch, childIndent = indent+"├── ", indent+"│   "
	}
	tv.flat = append(tv.flat, flatRow{view: v, prefix: branch})
	if v.collapsed {
		return
	}
	for i, c := range v.children {
		tv.appendVisible(c, childIndent, i == len(v.children)-1, false)
	}
}

// restoreCursor keeps the cursor on prev, or on its nearest visible
// ancestor when prev was hidden by a collapse.
func (tv *TreeView) restoreCursor(prev *NodeView) {
	for v := prev; v != nil; v = v.parent {
		if tv.SelectByID(v.ID()) {
			return
		}
	}
}

// ════════════════════════════════════════════════════════════════════════════
// Lookup
// ════════════════════════════════════════════════════════════════════════════

// NodeView returns the mounted view for id, or nil.
func (tv *TreeView) NodeView(id string) *NodeView {
	var found *NodeView
	for _, r := range tv.roots {
		r.walk(func(v *NodeView) {
			if found == nil && v.ID() == id {
				found = v
			}
		})
	}
	return found
}

// IsCollapsed reports the collapsed flag of a mounted node (false if absent).
func (tv *TreeView) IsCollapsed(id string) bool {
	if v := tv.NodeView(id); v != nil {
		return v.collapsed
	}
	return false
}

// CollapsedState returns the collapsed flag of every mounted node by id.
func (tv *TreeView) CollapsedState() map[string]bool {
	state := make(map[string]bool)
	for _, r := range tv.roots {
		r.walk(func(v *NodeView) { state[v.ID()] = v.collapsed })
	}
	return state
}

// MountedCount returns the number of mounted node views.
func (tv *TreeView) MountedCount() int {
	n := 0
	for _, r := range tv.roots {
		r.walk(func(*NodeView) { n++ })
	}
	return n
}

// VisibleIDs returns the ids of the visible rows in display order.
func (tv *TreeView) VisibleIDs() []string {
	ids := make([]string, len(tv.flat))
	for i, row := range tv.flat {
		ids[i] = row.view.ID()
	}
	return ids
}

// ════════════════════════════════════════════════════════════════════════════
// Navigation
// ════════════════════════════════════════════════════════════════════════════

func (tv *TreeView) selectedView() *NodeView {
	if tv.cursor >= 0 && tv.cursor < len(tv.flat) {
		return tv.flat[tv.cursor].view
	}
	return nil
}

// Selected returns the category under the cursor, or nil.
func (tv *TreeView) Selected() *model.Category {
	if v := tv.selectedView(); v != nil {
		return v.Node()
	}
	return nil
}

// SelectedID returns the id under the cursor, or "".
func (tv *TreeView) SelectedID() string {
	if v := tv.selectedView(); v != nil {
		return v.ID()
	}
	return ""
}

// SelectByID moves the cursor to the visible row with id.
// Returns true if found, false otherwise.
func (tv *TreeView) SelectByID(id string) bool {
	for i, row := range tv.flat {
		if row.view.ID() == id {
			tv.cursor = i
			tv.ensureCursorVisible()
			return true
		}
	}
	return false
}

// MoveDown moves the cursor down one row.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.flat)-1 {
		tv.cursor++
		tv.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up one row.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
		tv.ensureCursorVisible()
	}
}

func (tv *TreeView) JumpToTop() {
	tv.cursor = 0
	tv.ensureCursorVisible()
}

func (tv *TreeView) JumpToBottom() {
	if len(tv.flat) > 0 {
		tv.cursor = len(tv.flat) - 1
	}
	tv.ensureCursorVisible()
}

// JumpToParent moves the cursor to the selected node's parent.
func (tv *TreeView) JumpToParent() {
	if v := tv.selectedView(); v != nil && v.parent != nil {
		tv.SelectByID(v.parent.ID())
	}
}

// PageDown moves cursor down by half a viewport.
func (tv *TreeView) PageDown() {
	tv.cursor += tv.halfPage()
	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
	tv.ensureCursorVisible()
}

// PageUp moves cursor up by half a viewport.
func (tv *TreeView) PageUp() {
	tv.cursor -= tv.halfPage()
	if tv.cursor < 0 {
		tv.cursor = 0
	}
	tv.ensureCursorVisible()
}

func (tv *TreeView) halfPage() int {
	if n := tv.height / 2; n >= 1 {
		return n
	}
	return 5
}

// ToggleSelected flips the selected node's collapsed flag. It reports
// whether anything changed (leaves have no toggle).
func (tv *TreeView) ToggleSelected() bool {
	v := tv.selectedView()
	if v == nil || !v.HasToggle() {
		return false
	}
	v.Toggle()
	tv.rebuildFlatList()
	tv.SelectByID(v.ID())
	return true
}

// DeleteSelected invokes the delete callback for the selected node.
func (tv *TreeView) DeleteSelected() {
	if v := tv.selectedView(); v != nil {
		v.Delete()
	}
}

// effectiveVisibleCount returns the number of node lines that fit, leaving
// room for the header row and, when scrolling, the position indicator.
func (tv *TreeView) effectiveVisibleCount() int {
	visible := tv.height - 1
	if visible <= 0 {
		visible = 19
	}
	if len(tv.flat) > visible {
		visible--
	}
	if visible < 1 {
		visible = 1
	}
	return visible
}

// ensureCursorVisible scrolls just enough to keep the cursor on screen.
func (tv *TreeView) ensureCursorVisible() {
	if len(tv.flat) == 0 {
		tv.offset = 0
		return
	}
	visible := tv.effectiveVisibleCount()
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	}
	if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	maxOffset := len(tv.flat) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if tv.offset > maxOffset {
		tv.offset = maxOffset
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

// visibleRange returns the [start, end) slice of flat rows on screen.
func (tv *TreeView) visibleRange() (start, end int) {
	if len(tv.flat) == 0 {
		return 0, 0
	}
	visible := tv.effectiveVisibleCount()
	start = tv.offset
	if start < 0 {
		start = 0
	}
	end = start + visible
	if end > len(tv.flat) {
		end = len(tv.flat)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// ════════════════════════════════════════════════════════════════════════════
// Rendering
// ════════════════════════════════════════════════════════════════════════════

// View renders the header and the visible window of rows.
func (tv *TreeView) View() string {
	defer metrics.Timer(metrics.TreeRender)()

	if len(tv.flat) == 0 {
		return tv.renderEmptyState()
	}

	var sb strings.Builder
	sb.WriteString(tv.renderHeader())
	sb.WriteString("\n")

	start, end := tv.visibleRange()
	for i := start; i < end; i++ {
		sb.WriteString(tv.renderRow(tv.flat[i], i == tv.cursor))
		sb.WriteString("\n")
	}

	if len(tv.flat) > tv.effectiveVisibleCount() {
		indicator := fmt.Sprintf(" %d-%d of %d", start+1, end, len(tv.flat))
		sb.WriteString(tv.theme.MutedText.Render(indicator))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (tv *TreeView) rowWidth() int {
	w := tv.width
	if w <= 0 {
		w = 80
	}
	// One less than the width so the terminal never wraps on the edge.
	return w - 1
}

func (tv *TreeView) renderHeader() string {
	total := model.Count(tv.data)
	text := fmt.Sprintf("%s  %s", tv.title, pluralize(total, "category", "categories"))
	return tv.theme.Header.Width(tv.rowWidth()).Render(text)
}

func (tv *TreeView) renderEmptyState() string {
	var sb strings.Builder
	sb.WriteString(tv.theme.PrimaryBold.Render(tv.title))
	sb.WriteString("\n\n")
	if tv.sub == nil {
		sb.WriteString(tv.theme.MutedText.Render("Not mounted."))
		return sb.String()
	}
	sb.WriteString(tv.theme.MutedText.Render("No categories to display."))
	sb.WriteString("\n")
	sb.WriteString(tv.theme.MutedText.Render("Press N to create a root category."))
	return sb.String()
}

// renderRow lays out: [tree-prefix] [toggle] [level] [title] [summary] ... [status]
func (tv *TreeView) renderRow(row flatRow, selected bool) string {
	v := row.view
	t := tv.theme
	parts := v.header(t)
	width := tv.rowWidth()

	var left strings.Builder
	left.WriteString(t.MutedText.Render(row.prefix))
	left.WriteString(parts.glyph)
	left.WriteString(parts.level)
	left.WriteString(" ")

	right := parts.status
	if selected {
		right = RenderKeyHints(t, "⏎", "detail", "e", "edit", "d", "delete") + "  " + right
	}

	used := lipgloss.Width(left.String()) + lipgloss.Width(right) + 1
	if parts.summary != "" {
		used += lipgloss.Width(parts.summary) + 1
	}
	title := truncate(parts.title, width-used)
	if v.IsHighlighted() {
		title = t.Highlighted.Render("✦ " + truncate(parts.title, width-used-2))
	}
	left.WriteString(title)
	if parts.summary != "" {
		left.WriteString(" ")
		left.WriteString(parts.summary)
	}

	gap := width - lipgloss.Width(left.String()) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left.String() + strings.Repeat(" ", gap) + right

	switch {
	case selected:
		line = t.Selected.Render(line)
	case tv.dimmed[v.ID()]:
		line = t.Dimmed.Render(line)
	}
	return t.Renderer.NewStyle().MaxWidth(width + 2).Render(line)
}

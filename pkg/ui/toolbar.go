package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// ToolBar owns the search text and status filter for one tree and publishes
// commands on that tree's bus. It never touches the tree directly.
//
// Filtering happens client-side: Apply prunes the fetched forest down to
// matches plus the ancestors needed to reach them.
type ToolBar struct {
	bus    *CommandBus
	theme  Theme
	input  textinput.Model
	status model.StatusFilter

	data     []*model.Category
	matches  []string
	matchIdx int
}

// NewToolBar creates a toolbar publishing on bus.
func NewToolBar(bus *CommandBus, theme Theme) *ToolBar {
	ti := textinput.New()
	ti.Placeholder = "search title or slug..."
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Width = 30

	return &ToolBar{
		bus:    bus,
		theme:  theme,
		input:  ti,
		status: model.FilterAll,
	}
}

// SetData gives the toolbar the unfiltered forest to search.
func (tb *ToolBar) SetData(forest []*model.Category) {
	tb.data = forest
	tb.recomputeMatches()
}

// Focus puts the search input in edit mode.
func (tb *ToolBar) Focus() tea.Cmd { return tb.input.Focus() }

// Blur leaves edit mode, keeping the query.
func (tb *ToolBar) Blur() { tb.input.Blur() }

// Focused reports whether the search input has focus.
func (tb *ToolBar) Focused() bool { return tb.input.Focused() }

// Query returns the current search text.
func (tb *ToolBar) Query() string { return tb.input.Value() }

// Status returns the current status filter.
func (tb *ToolBar) Status() model.StatusFilter { return tb.status }

// Matches returns the ids matching the query in display order.
func (tb *ToolBar) Matches() []string { return tb.matches }

// Active reports whether any filter is in effect.
func (tb *ToolBar) Active() bool {
	return strings.TrimSpace(tb.Query()) != "" || tb.status != model.FilterAll
}

// SetQuery replaces the search text and reveals the first match.
func (tb *ToolBar) SetQuery(q string) {
	tb.input.SetValue(q)
	tb.onQueryChanged()
}

// SetStatus replaces the status filter.
func (tb *ToolBar) SetStatus(f model.StatusFilter) {
	tb.status = f
	tb.recomputeMatches()
}

// CycleStatus advances all -> active -> inactive -> all.
func (tb *ToolBar) CycleStatus() model.StatusFilter {
	tb.SetStatus(tb.status.Next())
	return tb.status
}

// Clear resets search text and status filter.
func (tb *ToolBar) Clear() {
	tb.input.SetValue("")
	tb.status = model.FilterAll
	tb.recomputeMatches()
}

// CollapseAll publishes a CollapseAll command.
func (tb *ToolBar) CollapseAll() {
	tb.bus.PublishCollapseAll()
}

// Reveal publishes ExpandToTarget for id.
func (tb *ToolBar) Reveal(id string) {
	if id != "" {
		tb.bus.PublishExpandToTarget(id)
	}
}

// NextMatch reveals the next match, wrapping around. Returns its id or "".
func (tb *ToolBar) NextMatch() string {
	if len(tb.matches) == 0 {
		return ""
	}
	tb.matchIdx = (tb.matchIdx + 1) % len(tb.matches)
	id := tb.matches[tb.matchIdx]
	tb.Reveal(id)
	return id
}

// CurrentMatch returns the id of the current match, or "".
func (tb *ToolBar) CurrentMatch() string {
	if tb.matchIdx < len(tb.matches) {
		return tb.matches[tb.matchIdx]
	}
	return ""
}

// Update feeds key input to the search field while focused. Enter keeps the
// query and leaves edit mode; Esc clears it. It reports whether the query
// changed.
func (tb *ToolBar) Update(msg tea.Msg) (bool, tea.Cmd) {
	if !tb.input.Focused() {
		return false, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			tb.input.Blur()
			return false, nil
		case "esc":
			tb.input.Blur()
			if tb.input.Value() == "" {
				return false, nil
			}
			tb.input.SetValue("")
			tb.onQueryChanged()
			return true, nil
		}
	}
	before := tb.input.Value()
	var cmd tea.Cmd
	tb.input, cmd = tb.input.Update(msg)
	if tb.input.Value() != before {
		tb.onQueryChanged()
		return true, cmd
	}
	return false, cmd
}

func (tb *ToolBar) onQueryChanged() {
	tb.recomputeMatches()
	if strings.TrimSpace(tb.Query()) != "" && len(tb.matches) > 0 {
		tb.Reveal(tb.matches[0])
	}
}

func (tb *ToolBar) recomputeMatches() {
	tb.matches = tb.matches[:0]
	tb.matchIdx = 0
	if strings.TrimSpace(tb.Query()) == "" {
		return
	}
	model.Walk(tb.data, func(c *model.Category, _ int) bool {
		if tb.accepts(c) {
			tb.matches = append(tb.matches, c.ID)
		}
		return true
	})
}

// accepts reports whether c passes both the query and the status filter.
func (tb *ToolBar) accepts(c *model.Category) bool {
	if !tb.status.Matches(c) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(tb.Query()))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Slug), q) ||
		strings.ToLower(c.ID) == q
}

// Apply returns the forest pruned to nodes that match plus the ancestors
// needed to reach them. Kept ancestors that do not match themselves are
// returned in context so the tree can dim them. With no filter active the
// forest is returned unchanged. The input is never modified.
func (tb *ToolBar) Apply(forest []*model.Category) (filtered []*model.Category, context map[string]bool) {
	if !tb.Active() {
		return forest, nil
	}
	context = make(map[string]bool)
	seen := make(map[*model.Category]bool)

	var prune func(n *model.Category, depth int) *model.Category
	prune = func(n *model.Category, depth int) *model.Category {
		if n == nil || seen[n] || depth > model.MaxTreeDepth {
			return nil
		}
		seen[n] = true
		defer delete(seen, n)

		var kids []*model.Category
		for _, c := range n.Children {
			if kept := prune(c, depth+1); kept != nil {
				kids = append(kids, kept)
			}
		}
		self := tb.accepts(n)
		if !self && len(kids) == 0 {
			return nil
		}
		out := n.Clone()
		if kids != nil {
			out.Children = kids
		}
		if !self {
			context[n.ID] = true
		}
		return out
	}

	filtered = []*model.Category{}
	for _, root := range forest {
		if kept := prune(root, 0); kept != nil {
			filtered = append(filtered, kept)
		}
	}
	return filtered, context
}

// View renders the search field, match counter and status filter.
func (tb *ToolBar) View(width int) string {
	t := tb.theme
	var sb strings.Builder

	if tb.input.Focused() || tb.Query() != "" {
		sb.WriteString(tb.input.View())
		switch {
		case len(tb.matches) > 0:
			sb.WriteString(t.MutedText.Render(fmt.Sprintf(" [%d/%d]", tb.matchIdx+1, len(tb.matches))))
		case tb.Query() != "":
			sb.WriteString(t.ErrorText.Render(" [no matches]"))
		}
	} else {
		sb.WriteString(t.MutedText.Render("/ search"))
	}

	sb.WriteString("   ")
	sb.WriteString(t.MutedText.Render("status: "))
	sb.WriteString(t.PrimaryBold.Render(string(tb.status)))

	line := sb.String()
	if width > 0 {
		line = t.Renderer.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}

package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/tourdesk/internal/datasource"
	"github.com/vanderheijden86/tourdesk/pkg/config"
	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/model"
	"github.com/vanderheijden86/tourdesk/pkg/watcher"
)

// copyToClipboard is swapped out in tests; headless CI has no clipboard.
var copyToClipboard = clipboard.WriteAll

// focus represents which UI element has keyboard focus
type focus int

const (
	focusTree focus = iota
	focusSearch
	focusForm
	focusHelp
)

// domainTab is one category tree with its own bus, toolbar and fetched data.
type domainTab struct {
	domain  model.Domain
	tree    *TreeView
	toolbar *ToolBar

	forest []*model.Category // unfiltered, as fetched
	loaded bool
	err    error

	// ids handed to the tree's OnDelete since the last drain
	deletes []string
}

// Options configures NewModel.
type Options struct {
	Config  config.Config
	Watcher *watcher.Watcher
	Theme   *Theme
}

// Model is the main Bubble Tea model for the category manager.
type Model struct {
	src     datasource.Source
	writer  *CategoryWriter
	watcher *watcher.Watcher
	cfg     config.Config
	theme   Theme

	tabs   []*domainTab
	active int

	detail     *DetailPane
	showDetail bool
	tours      map[string][]model.Tour

	form    *CategoryForm
	focused focus

	loaded        bool
	statusMsg     string
	statusIsError bool

	width  int
	height int
}

// NewModel builds the app for src. The start domain's tree is mounted; the
// others mount when their tab is opened.
func NewModel(src datasource.Source, opts Options) Model {
	cfg := opts.Config
	if cfg.Domains == nil {
		cfg = config.DefaultConfig()
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	m := Model{
		src:        src,
		writer:     NewCategoryWriter(src),
		watcher:    opts.Watcher,
		cfg:        cfg,
		theme:      theme,
		detail:     NewDetailPane(),
		showDetail: cfg.UI.ShowDetail,
		tours:      make(map[string][]model.Tour),
		// Start with sane dimensions; the first WindowSizeMsg corrects them.
		width:  120,
		height: 40,
	}

	start := cfg.StartDomain()
	for _, d := range cfg.EnabledDomains() {
		bus := NewCommandBus()
		tab := &domainTab{
			domain: d,
			tree: NewTreeView(TreeViewOptions{
				Title:    cfg.Title(d),
				BasePath: cfg.BasePath(d),
				Theme:    theme,
				Bus:      bus,
			}),
			toolbar: NewToolBar(bus, theme),
		}
		tab.tree.SetOnDelete(func(id string) { tab.deletes = append(tab.deletes, id) })
		if d == start {
			m.active = len(m.tabs)
		}
		m.tabs = append(m.tabs, tab)
	}
	if tab := m.activeTab(); tab != nil {
		tab.tree.Mount()
	}
	m.layout()
	return m
}

// Init starts the initial fetch, the active tree's listener and the file
// watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{LoadForestsCmd(m.src, m.domains(), "")}
	if tab := m.activeTab(); tab != nil {
		cmds = append(cmds, tab.tree.Listen())
	}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) domains() []model.Domain {
	out := make([]model.Domain, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = t.domain
	}
	return out
}

func (m Model) activeTab() *domainTab {
	if m.active >= 0 && m.active < len(m.tabs) {
		return m.tabs[m.active]
	}
	return nil
}

func (m Model) tabFor(d model.Domain) *domainTab {
	for _, t := range m.tabs {
		if t.domain == d {
			return t
		}
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The form gets every message type while shown; huh drives its own
	// field navigation through internal messages.
	if m.form != nil {
		if _, ok := msg.(tea.WindowSizeMsg); !ok {
			return m.updateForm(msg)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if m.form != nil {
			m.form.SetWidth(msg.Width)
		}
		return m, nil

	case CommandsMsg:
		if tab := m.activeTab(); tab != nil {
			cmd := tab.tree.Update(msg)
			return m, tea.Batch(cmd, m.syncDetail())
		}
		return m, nil

	case ForestsLoadedMsg:
		return m.handleLoaded(msg)

	case ToursLoadedMsg:
		if msg.Err != nil {
			debug.Log("loading tours for %s: %v", msg.CategoryID, msg.Err)
			return m, nil
		}
		m.tours[msg.CategoryID] = msg.Tours
		m.showSelected()
		return m, nil

	case WriteResultMsg:
		return m.handleWriteResult(msg)

	case FileChangedMsg:
		debug.Log("data file changed, refetching")
		return m, tea.Batch(
			LoadForestsCmd(m.src, m.domains(), ""),
			WatchFileCmd(m.watcher),
		)

	case tea.KeyMsg:
		switch m.focused {
		case focusSearch:
			return m.handleSearchKeys(msg)
		case focusHelp:
			m.focused = focusTree
			return m, nil
		default:
			return m.handleTreeKeys(msg)
		}
	}
	return m, nil
}

// ════════════════════════════════════════════════════════════════════════════
// Data
// ════════════════════════════════════════════════════════════════════════════

func (m Model) handleLoaded(msg ForestsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.setError(fmt.Sprintf("Loading failed: %v", msg.Err))
		return m, nil
	}
	wasLoaded := m.loaded
	m.loaded = true
	m.tours = make(map[string][]model.Tour)

	var changes []string
	for _, res := range msg.Results {
		tab := m.tabFor(res.Domain)
		if tab == nil {
			continue
		}
		if res.Error != nil {
			tab.err = res.Error
			m.setError(fmt.Sprintf("%s: %v", tab.tree.Title(), res.Error))
			continue
		}
		if tab.loaded {
			if diff := datasource.CompareForests(tab.forest, res.Forest); diff.HasChanges() {
				changes = append(changes, fmt.Sprintf("%s %s", tab.tree.Title(), diff.Summary()))
			}
		}
		tab.err = nil
		tab.loaded = true
		tab.forest = res.Forest
		tab.toolbar.SetData(res.Forest)
		m.applyFilter(tab)

		if msg.Reveal != "" && model.Find(res.Forest, msg.Reveal) != nil {
			m.reveal(tab, msg.Reveal)
		}
	}

	if wasLoaded && msg.Reveal == "" && len(changes) > 0 {
		m.setStatus("Reloaded: " + strings.Join(changes, ", "))
	}
	return m, m.syncDetail()
}

// applyFilter pushes the toolbar-filtered forest into the tree.
func (m Model) applyFilter(tab *domainTab) {
	filtered, context := tab.toolbar.Apply(tab.forest)
	tab.tree.SetData(filtered)
	tab.tree.SetDimmed(context)
}

// reveal expands every ancestor of id, highlights it and moves the cursor
// there. Commands are flushed so the cursor can follow in the same frame.
func (m Model) reveal(tab *domainTab, id string) {
	tab.toolbar.Reveal(id)
	tab.tree.Flush()
	tab.tree.SetHighlight(id)
	tab.tree.SelectByID(id)
}

// syncDetail shows the selection and fetches its tours when they are not
// cached yet.
func (m Model) syncDetail() tea.Cmd {
	c := m.showSelected()
	if c == nil || m.activeTab().domain != model.DomainTour {
		return nil
	}
	if _, ok := m.tours[c.ID]; ok {
		return nil
	}
	return LoadToursCmd(m.src, c.ID)
}

func (m Model) showSelected() *model.Category {
	tab := m.activeTab()
	if tab == nil || !m.showDetail {
		return nil
	}
	c := m.selectedOriginal()
	if c == nil {
		m.detail.Show(nil, Links{}, nil, false)
		return nil
	}
	tours := m.tours[c.ID]
	m.detail.Show(c, tab.tree.Links(), tours, tab.domain == model.DomainTour)
	return c
}

// selectedOriginal returns the fetched node under the cursor rather than
// the filtered copy, so counts include hidden children.
func (m Model) selectedOriginal() *model.Category {
	tab := m.activeTab()
	if tab == nil {
		return nil
	}
	id := tab.tree.SelectedID()
	if id == "" {
		return nil
	}
	if c := model.Find(tab.forest, id); c != nil {
		return c
	}
	return tab.tree.Selected()
}

// ════════════════════════════════════════════════════════════════════════════
// Mutations
// ════════════════════════════════════════════════════════════════════════════

func (m Model) openForm(f *CategoryForm) (tea.Model, tea.Cmd) {
	m.form = f
	m.focused = focusForm
	f.SetWidth(m.width)
	return m, f.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.form.Update(msg)
	if !m.form.Done() {
		return m, cmd
	}

	f := m.form
	m.form = nil
	m.focused = focusTree
	if f.Aborted() {
		m.setStatus("Cancelled")
		return m, nil
	}

	switch f.Mode() {
	case FormCreate:
		return m, m.writer.Create(f.Domain(), f.ParentID(), f.Input())
	case FormEdit:
		return m, m.writer.Update(f.Domain(), f.TargetID(), f.Input())
	case FormDelete:
		return m, m.deleteNode(f.TargetID())
	}
	return m, nil
}

// deleteNode routes a confirmed delete through the node's own Delete so the
// tree's OnDelete callback decides what is written.
func (m *Model) deleteNode(id string) tea.Cmd {
	tab := m.activeTab()
	if tab == nil || !tab.tree.SelectByID(id) {
		m.setError("Category is no longer visible")
		return nil
	}
	tab.tree.DeleteSelected()

	var cmds []tea.Cmd
	for _, target := range tab.deletes {
		cmds = append(cmds, m.writer.Delete(tab.domain, target))
	}
	tab.deletes = nil
	return tea.Batch(cmds...)
}

func (m Model) handleWriteResult(msg WriteResultMsg) (tea.Model, tea.Cmd) {
	if !msg.Success() {
		m.setError(msg.Status())
		if IsNotFound(msg.Err) {
			return m, LoadForestsCmd(m.src, []model.Domain{msg.Domain}, "")
		}
		return m, nil
	}

	m.setStatus(msg.Status())
	reveal := ""
	switch msg.Op {
	case WriteCreate, WriteUpdate:
		reveal = msg.ID
	case WriteDelete:
		if tab := m.tabFor(msg.Domain); tab != nil && tab.tree.HighlightID() == msg.ID {
			tab.tree.ClearHighlight()
		}
	}
	return m, LoadForestsCmd(m.src, []model.Domain{msg.Domain}, reveal)
}

// ════════════════════════════════════════════════════════════════════════════
// Keys
// ════════════════════════════════════════════════════════════════════════════

func (m Model) handleTreeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.activeTab()
	if tab == nil {
		if s := msg.String(); s == "q" || s == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}
	tv := tab.tree
	m.statusMsg = ""
	m.statusIsError = false

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.focused = focusHelp
		return m, nil

	case "j", "down":
		tv.MoveDown()
	case "k", "up":
		tv.MoveUp()
	case "g", "home":
		tv.JumpToTop()
	case "G", "end":
		tv.JumpToBottom()
	case "ctrl+d", "pgdown":
		tv.PageDown()
	case "ctrl+u", "pgup":
		tv.PageUp()
	case "h", "left", "backspace":
		tv.JumpToParent()

	case "enter", " ", "l", "right":
		if tv.ToggleSelected() {
			tv.ClearHighlight()
		}

	case "Z":
		tab.toolbar.CollapseAll()
		tv.Flush()
		tv.ClearHighlight()

	case "/":
		m.focused = focusSearch
		return m, tab.toolbar.Focus()

	case "]":
		if id := tab.toolbar.NextMatch(); id != "" {
			tv.Flush()
			tv.SelectByID(id)
		}

	case "s":
		f := tab.toolbar.CycleStatus()
		m.applyFilter(tab)
		m.setStatus(fmt.Sprintf("Showing %s categories", f))

	case "esc":
		switch {
		case tab.toolbar.Active():
			tab.toolbar.Clear()
			m.applyFilter(tab)
		case tv.HighlightID() != "":
			tv.ClearHighlight()
		}

	case "tab", "shift+tab":
		step := 1
		if msg.String() == "shift+tab" {
			step = len(m.tabs) - 1
		}
		return m.switchTab((m.active + step) % len(m.tabs))

	case "1", "2", "3":
		i := int(msg.String()[0] - '1')
		if i < len(m.tabs) {
			return m.switchTab(i)
		}

	case "p":
		m.showDetail = !m.showDetail
		m.layout()

	case "J":
		m.detail.ScrollDown()
		return m, nil
	case "K":
		m.detail.ScrollUp()
		return m, nil

	case "r":
		return m, LoadForestsCmd(m.src, m.domains(), "")

	case "y", "Y":
		c := tv.Selected()
		if c == nil {
			m.setError("No category selected")
			break
		}
		link := tv.Links().Detail(c.ID)
		if msg.String() == "Y" {
			link = tv.Links().Edit(c.ID)
		}
		if err := copyToClipboard(link); err != nil {
			m.setError(fmt.Sprintf("Clipboard error: %v", err))
		} else {
			m.setStatus("Copied " + link)
		}

	case "n", "N", "e", "d":
		return m.handleMutationKey(msg.String())
	}

	return m, m.syncDetail()
}

func (m Model) handleMutationKey(key string) (tea.Model, tea.Cmd) {
	tab := m.activeTab()
	if m.writer.ReadOnly() {
		m.setError(fmt.Sprintf("%v: import the file into a database to edit", datasource.ErrReadOnly))
		return m, nil
	}
	if !tab.loaded {
		m.setError("Categories are still loading")
		return m, nil
	}

	selected := m.selectedOriginal()
	switch key {
	case "N":
		return m.openForm(NewCreateForm(tab.domain, nil))
	case "n":
		if selected != nil && len(model.PathTo(tab.forest, selected.ID)) > model.MaxTreeDepth {
			m.setError(model.ErrTooDeep.Error())
			return m, nil
		}
		return m.openForm(NewCreateForm(tab.domain, selected))
	}

	if selected == nil {
		m.setError("No category selected")
		return m, nil
	}
	if key == "e" {
		return m.openForm(NewEditForm(tab.domain, selected))
	}
	return m.openForm(NewDeleteForm(tab.domain, selected))
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.activeTab()
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	changed, cmd := tab.toolbar.Update(msg)
	if changed {
		m.applyFilter(tab)
		tab.tree.Flush()
		if id := tab.toolbar.CurrentMatch(); id != "" {
			tab.tree.SelectByID(id)
		}
	}
	if !tab.toolbar.Focused() {
		m.focused = focusTree
	}
	return m, tea.Batch(cmd, m.syncDetail())
}

// switchTab unmounts the current tree and mounts the tree at i. Collapsed
// state of the tree being left is dropped with its views.
func (m Model) switchTab(i int) (tea.Model, tea.Cmd) {
	if i == m.active || i < 0 || i >= len(m.tabs) {
		return m, nil
	}
	m.activeTab().tree.Unmount()
	m.active = i
	tab := m.activeTab()
	listen := tab.tree.Mount()
	m.layout()
	debug.Log("switched to %s", tab.domain)
	return m, tea.Batch(listen, m.syncDetail())
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusIsError = true
}

// ════════════════════════════════════════════════════════════════════════════
// Layout and rendering
// ════════════════════════════════════════════════════════════════════════════

// bodyHeight is the height left after the tab bar, toolbar and footer.
func (m Model) bodyHeight() int {
	h := m.height - 3
	if h < 3 {
		h = 3
	}
	return h
}

// splitActive reports whether the detail pane fits next to the tree.
func (m Model) splitActive() bool {
	return m.showDetail && m.width >= 60
}

func (m Model) treeWidth() int {
	if !m.splitActive() {
		return m.width
	}
	ratio := m.cfg.UI.SplitRatio
	if ratio == 0 {
		ratio = 0.5
	}
	return int(float64(m.width) * ratio)
}

func (m Model) layout() {
	tw := m.treeWidth()
	for _, t := range m.tabs {
		t.tree.SetSize(tw, m.bodyHeight())
	}
	if m.splitActive() {
		// Border takes two columns and two rows.
		m.detail.SetSize(m.width-tw-2, m.bodyHeight()-2)
	}
}

func (m Model) View() string {
	// Ensure the final output fits exactly in the terminal height
	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	// Modal takes priority and replaces the toolbar row.
	if m.form != nil {
		modal := lipgloss.Place(m.width, m.bodyHeight()+1, lipgloss.Center, lipgloss.Center, m.form.View(m.theme))
		return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), modal, m.renderFooter()))
	}

	body := m.renderBody()
	if m.focused == focusHelp {
		body = m.renderHelp()
	}
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		m.renderToolbar(),
		body,
		m.renderFooter(),
	))
}

func (m Model) renderBody() string {
	tab := m.activeTab()
	t := m.theme
	if tab == nil {
		return t.MutedText.Render("Every domain is disabled in the config.")
	}

	var tree string
	switch {
	case !m.loaded:
		tree = t.MutedText.Render("Loading categories...")
	case tab.err != nil:
		tree = t.ErrorText.Render(fmt.Sprintf("Could not load %s: %v", tab.tree.Title(), tab.err)) +
			"\n\n" + t.MutedText.Render("Press r to retry.")
	default:
		tree = tab.tree.View()
	}
	if !m.splitActive() {
		return tree
	}

	treePane := lipgloss.NewStyle().Width(m.treeWidth()).Height(m.bodyHeight()).Render(tree)
	detailPane := PanelStyle.
		Width(m.width - m.treeWidth() - 2).
		Height(m.bodyHeight() - 2).
		Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, treePane, detailPane)
}

func (m Model) renderTabs() string {
	t := m.theme
	var parts []string
	for i, tab := range m.tabs {
		label := fmt.Sprintf(" %d %s ", i+1, tab.tree.Title())
		if tab.loaded {
			label = fmt.Sprintf(" %d %s (%d) ", i+1, tab.tree.Title(), model.Count(tab.forest))
		}
		if i == m.active {
			parts = append(parts, t.Header.Render(label))
		} else {
			parts = append(parts, t.MutedText.Render(label))
		}
	}

	left := t.PrimaryBold.Render("tourdesk") + "  " + strings.Join(parts, " ")
	right := ""
	if m.src != nil {
		right = t.MutedText.Render(fmt.Sprintf("%s %s", m.src.Type(), m.src.Path()))
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncate(left, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderToolbar() string {
	if tab := m.activeTab(); tab != nil {
		return tab.toolbar.View(m.width)
	}
	return ""
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
		prefix := "✓ "
		if m.statusIsError {
			style = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)
			prefix = "✗ "
		}
		return style.Render(truncate(prefix+m.statusMsg, m.width))
	}

	switch m.focused {
	case focusSearch:
		return RenderKeyHints(t, "enter", "keep", "esc", "clear")
	case focusForm:
		return RenderKeyHints(t, "tab", "next", "esc", "cancel")
	}
	hints := []string{"j/k", "nav", "⏎", "fold", "Z", "collapse", "/", "search", "s", "status"}
	if !m.writer.ReadOnly() {
		hints = append(hints, "n/N", "new", "e", "edit", "d", "delete")
	}
	hints = append(hints, "y", "copy", "tab", "domain", "?", "help", "q", "quit")
	return RenderKeyHints(t, hints...)
}

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"Navigation", [][2]string{
		{"j / k", "move down / up"},
		{"g / G", "top / bottom"},
		{"ctrl+d / ctrl+u", "half page down / up"},
		{"h", "jump to parent"},
		{"enter, space", "expand or collapse"},
		{"Z", "collapse all"},
	}},
	{"Filter", [][2]string{
		{"/", "search title or slug"},
		{"]", "next match"},
		{"s", "cycle all / active / inactive"},
		{"esc", "clear filter, then highlight"},
	}},
	{"Edit", [][2]string{
		{"n", "new child of selection"},
		{"N", "new root category"},
		{"e", "edit selection"},
		{"d", "delete selection and subtree"},
	}},
	{"Other", [][2]string{
		{"tab / 1-3", "switch domain"},
		{"p", "toggle detail pane"},
		{"J / K", "scroll detail"},
		{"y / Y", "copy detail / edit link"},
		{"r", "reload"},
		{"q", "quit"},
	}},
}

func (m Model) renderHelp() string {
	t := m.theme
	var sb strings.Builder
	sb.WriteString(t.PrimaryBold.Render("Keyboard shortcuts"))
	sb.WriteString("\n")
	sb.WriteString(RenderDivider(40))
	sb.WriteString("\n")
	for _, s := range helpSections {
		sb.WriteString("\n")
		sb.WriteString(t.SecondaryText.Render(s.title))
		sb.WriteString("\n")
		for _, k := range s.keys {
			sb.WriteString("  ")
			sb.WriteString(t.PrimaryBold.Render(padRight(k[0], 18)))
			sb.WriteString(t.MutedText.Render(k[1]))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(t.MutedText.Render("Press any key to close."))
	return PanelStyle.Padding(0, 2).Render(sb.String())
}

// ════════════════════════════════════════════════════════════════════════════
// Accessors
// ════════════════════════════════════════════════════════════════════════════

// ActiveDomain returns the domain of the visible tab.
func (m Model) ActiveDomain() model.Domain {
	if tab := m.activeTab(); tab != nil {
		return tab.domain
	}
	return ""
}

// Tree returns the tree of d, or nil when the domain is disabled.
func (m Model) Tree(d model.Domain) *TreeView {
	if tab := m.tabFor(d); tab != nil {
		return tab.tree
	}
	return nil
}

// ToolBar returns the toolbar of d, or nil.
func (m Model) ToolBar(d model.Domain) *ToolBar {
	if tab := m.tabFor(d); tab != nil {
		return tab.toolbar
	}
	return nil
}

// Form returns the open modal, or nil.
func (m Model) Form() *CategoryForm { return m.form }

// Status returns the status line and whether it is an error.
func (m Model) Status() (string, bool) { return m.statusMsg, m.statusIsError }

// Detail returns the detail pane.
func (m Model) Detail() *DetailPane { return m.detail }

// FocusState returns the focused element for tests and debugging.
func (m Model) FocusState() string {
	switch m.focused {
	case focusSearch:
		return "search"
	case focusForm:
		return "form"
	case focusHelp:
		return "help"
	}
	return "tree"
}

// Stop releases the watcher.
func (m Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

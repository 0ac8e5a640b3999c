package ui

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/tourdesk/internal/datasource"
	"github.com/vanderheijden86/tourdesk/pkg/config"
	"github.com/vanderheijden86/tourdesk/pkg/loader"
	"github.com/vanderheijden86/tourdesk/pkg/model"
	"github.com/vanderheijden86/tourdesk/pkg/testutil"
)

func scenarioDataset() *loader.Dataset {
	ds := &loader.Dataset{}
	for _, c := range model.Flatten(testutil.Scenario()) {
		c.Domain = model.DomainTour
		ds.Categories = append(ds.Categories, c)
	}
	ds.Categories = append(ds.Categories, model.Category{
		ID: "N1", Domain: model.DomainNews, Title: "Press", Slug: "press", Active: true,
	})
	ds.Tours = []model.Tour{
		{ID: "t1", CategoryID: "D", Title: "Haute Route", Slug: "haute-route", Days: 7, PriceCents: 189900, Active: true},
	}
	return ds
}

// newTestModel returns a loaded model over a store seeded with the
// A{B{D,E},C} tours forest and one news category.
func newTestModel(t *testing.T) (Model, *datasource.Store) {
	t.Helper()
	s := openTestStore(t)
	if _, err := s.Import(context.Background(), scenarioDataset()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return loadModel(t, s), s
}

func loadModel(t *testing.T, src datasource.Source) Model {
	t.Helper()
	theme := TestTheme()
	m := NewModel(src, Options{Config: config.DefaultConfig(), Theme: &theme})
	m = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return update(m, LoadForestsCmd(src, m.domains(), "")())
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		m = update(m, key(k))
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// firstMsg runs cmd and returns the first message it produces, descending
// into batches. Only use it on commands that do not block.
func firstMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if m := c(); m != nil {
				return m
			}
		}
		t.Fatal("batch produced no message")
	}
	return msg
}

// submit completes the open form and feeds every resulting message back in
// until the reload lands.
func submit(t *testing.T, m Model) Model {
	t.Helper()
	completeForm(m.Form())
	m, cmd := updateCmd(m, key("enter"))
	if m.Form() != nil {
		t.Fatal("form should close after submit")
	}
	return applyWrite(t, m, cmd)
}

func applyWrite(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	res, ok := firstMsg(t, cmd).(WriteResultMsg)
	if !ok {
		t.Fatal("expected a WriteResultMsg")
	}
	m, cmd = updateCmd(m, res)
	if !res.Success() {
		t.Fatalf("write failed: %v", res.Err)
	}
	return update(m, firstMsg(t, cmd))
}

func TestModelLoadsEveryDomain(t *testing.T) {
	m, _ := newTestModel(t)

	if m.ActiveDomain() != model.DomainTour {
		t.Fatalf("active domain = %s", m.ActiveDomain())
	}
	tours := m.Tree(model.DomainTour)
	if got := tours.VisibleIDs(); !reflect.DeepEqual(got, []string{"A", "B", "D", "E", "C"}) {
		t.Errorf("visible = %v", got)
	}
	news := m.Tree(model.DomainNews)
	if news.Mounted() || model.Count(news.Data()) != 1 {
		t.Errorf("news should hold data without being mounted (mounted=%v)", news.Mounted())
	}

	out := stripANSI(m.View())
	for _, want := range []string{"tourdesk", "Tours (5)", "News (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelCreateRevealsAndHighlights(t *testing.T) {
	m, s := newTestModel(t)

	m = press(m, "j", "j")
	if id := m.Tree(model.DomainTour).SelectedID(); id != "D" {
		t.Fatalf("selected %q, want D", id)
	}
	m = press(m, "n")
	if m.Form() == nil || m.Form().Mode() != FormCreate || m.Form().ParentID() != "D" {
		t.Fatalf("expected create form under D, got %+v", m.Form())
	}
	m.Form().values.Title = "Day Hikes"

	// Collapse everything while the write is in flight.
	completeForm(m.Form())
	m, cmd := updateCmd(m, key("enter"))
	m.ToolBar(model.DomainTour).CollapseAll()
	m.Tree(model.DomainTour).Flush()
	m = applyWrite(t, m, cmd)

	forest, _ := s.LoadForest(context.Background(), model.DomainTour)
	created := model.Find(forest, "D").Children
	if len(created) != 1 || created[0].Slug != "day-hikes" {
		t.Fatalf("store children of D = %+v", created)
	}
	id := created[0].ID

	tv := m.Tree(model.DomainTour)
	if tv.HighlightID() != id || tv.SelectedID() != id {
		t.Errorf("highlight=%q selected=%q, want %q", tv.HighlightID(), tv.SelectedID(), id)
	}
	assertCollapsed(t, tv, map[string]bool{"A": false, "B": false, "D": false})
	if msg, isErr := m.Status(); isErr || msg != `Created "Day Hikes"` {
		t.Errorf("status = %q (error=%v)", msg, isErr)
	}
}

func TestModelCreateRoot(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "N")
	if m.Form() == nil || m.Form().ParentID() != "" {
		t.Fatal("N should open a root create form")
	}
	m.Form().values.Title = "Asia"
	m = submit(t, m)

	tv := m.Tree(model.DomainTour)
	roots := tv.Data()
	if len(roots) != 2 || roots[1].Title != "Asia" {
		t.Fatalf("roots = %v", model.IDs(roots))
	}
	if tv.SelectedID() != roots[1].ID {
		t.Error("the new root should be selected")
	}
}

func TestModelEdit(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "G") // C
	m = press(m, "e")
	f := m.Form()
	if f == nil || f.Mode() != FormEdit || f.TargetID() != "C" {
		t.Fatalf("expected edit form for C, got %+v", f)
	}
	f.values.Title = "Coastal Walks"
	f.values.Slug = ""
	m = submit(t, m)

	c := model.Find(m.Tree(model.DomainTour).Data(), "C")
	if c == nil || c.Title != "Coastal Walks" || c.Slug != "coastal-walks" {
		t.Fatalf("C after edit = %+v", c)
	}
	if m.Tree(model.DomainTour).HighlightID() != "C" {
		t.Error("edited node should be highlighted")
	}
	if !strings.Contains(m.Detail().Markdown(), "# Coastal Walks") {
		t.Errorf("detail not refreshed:\n%s", m.Detail().Markdown())
	}
}

func TestModelDeleteGoesThroughNode(t *testing.T) {
	m, s := newTestModel(t)

	m = press(m, "j", "d") // B
	f := m.Form()
	if f == nil || f.Mode() != FormDelete || f.TargetID() != "B" {
		t.Fatalf("expected delete form for B, got %+v", f)
	}
	f.values.Confirm = true
	m = submit(t, m)

	if n, _ := s.CountCategories(context.Background(), model.DomainTour); n != 2 {
		t.Errorf("store should keep A and C, has %d", n)
	}
	if got := m.Tree(model.DomainTour).VisibleIDs(); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Errorf("visible = %v", got)
	}
}

func TestModelDeleteDeclined(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "d")
	completeForm(m.Form())
	m, cmd := updateCmd(m, key("enter"))
	if cmd != nil {
		t.Error("declining should not write")
	}
	if msg, _ := m.Status(); msg != "Cancelled" {
		t.Errorf("status = %q", msg)
	}
}

func TestModelStructuralActionsClearHighlight(t *testing.T) {
	m, _ := newTestModel(t)
	tv := m.Tree(model.DomainTour)

	tv.SetHighlight("E")
	m = press(m, "Z")
	if tv.HighlightID() != "" {
		t.Error("collapse all should clear the highlight")
	}

	tv.SetHighlight("E")
	m = press(m, "j") // moving does not count
	if tv.HighlightID() != "E" {
		t.Error("navigation should keep the highlight")
	}
	m = press(m, "k", "enter")
	if tv.HighlightID() != "" {
		t.Error("toggling should clear the highlight")
	}

	tv.SetHighlight("E")
	press(m, "esc")
	if tv.HighlightID() != "" {
		t.Error("esc without a filter should clear the highlight")
	}
}

func TestModelTabSwitchRemountsTrees(t *testing.T) {
	m, _ := newTestModel(t)
	tours := m.Tree(model.DomainTour)

	m = press(m, "enter") // collapse A
	if !tours.IsCollapsed("A") {
		t.Fatal("A should be collapsed")
	}

	m = press(m, "tab")
	if m.ActiveDomain() != model.DomainNews {
		t.Fatalf("active = %s", m.ActiveDomain())
	}
	if tours.Mounted() || tours.SubscriberCount() != 0 {
		t.Error("leaving a tab should unmount its tree")
	}
	if !m.Tree(model.DomainNews).Mounted() {
		t.Error("news should be mounted")
	}

	m = press(m, "shift+tab")
	if m.ActiveDomain() != model.DomainTour {
		t.Fatalf("active = %s", m.ActiveDomain())
	}
	if tours.IsCollapsed("A") {
		t.Error("remounted tree should start from fresh node state")
	}

	m = press(m, "3")
	if m.ActiveDomain() != model.DomainGallery {
		t.Errorf("3 should open gallery, got %s", m.ActiveDomain())
	}
}

func TestModelSearch(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "Z", "/")
	if m.FocusState() != "search" {
		t.Fatalf("focus = %s", m.FocusState())
	}
	m = press(m, "D")

	tv := m.Tree(model.DomainTour)
	if got := tv.VisibleIDs(); !reflect.DeepEqual(got, []string{"A", "B", "D"}) {
		t.Errorf("filtered visible = %v", got)
	}
	if tv.SelectedID() != "D" {
		t.Errorf("first match should be selected, got %q", tv.SelectedID())
	}

	m = press(m, "enter")
	if m.FocusState() != "tree" {
		t.Error("enter should return focus to the tree")
	}

	press(m, "esc")
	if got := tv.VisibleIDs(); len(got) != 5 {
		t.Errorf("esc should clear the filter, visible = %v", got)
	}
}

func TestModelStatusFilter(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "s")
	if msg, _ := m.Status(); msg != "Showing active categories" {
		t.Errorf("status = %q", msg)
	}
	m = press(m, "s")
	if got := m.Tree(model.DomainTour).VisibleIDs(); len(got) != 0 {
		t.Errorf("no category is inactive, visible = %v", got)
	}
}

func TestModelDetailShowsTours(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := updateCmd(m, key("j"))
	m, cmd = updateCmd(m, key("j")) // D
	msg, ok := firstMsg(t, cmd).(ToursLoadedMsg)
	if !ok || msg.CategoryID != "D" {
		t.Fatalf("expected tours for D, got %+v", msg)
	}
	m = update(m, msg)

	md := m.Detail().Markdown()
	if !strings.Contains(md, "**Haute Route**") || !strings.Contains(md, "/admin/tour-categories/detail/D") {
		t.Errorf("detail = \n%s", md)
	}

	m = press(m, "p")
	if strings.Contains(stripANSI(m.View()), "Haute Route") {
		t.Error("p should hide the detail pane")
	}
}

func TestModelDetailScrollKeys(t *testing.T) {
	s := openTestStore(t)
	ds := scenarioDataset()
	ds.Categories[0].Description = strings.Repeat("Day by day itinerary.\n\n", 200)
	if _, err := s.Import(context.Background(), ds); err != nil {
		t.Fatalf("Import: %v", err)
	}
	m := loadModel(t, s)
	if m.Tree(model.DomainTour).SelectedID() != "A" {
		t.Fatalf("selected = %q", m.Tree(model.DomainTour).SelectedID())
	}

	m = press(m, "J")
	offset := m.Detail().YOffset()
	if offset == 0 {
		t.Fatal("J should scroll the detail pane")
	}

	// Tours arriving for the same category keep the scroll position.
	m = update(m, ToursLoadedMsg{CategoryID: "A"})
	if got := m.Detail().YOffset(); got != offset {
		t.Errorf("offset after tours load = %d, want %d", got, offset)
	}

	m = press(m, "K")
	if got := m.Detail().YOffset(); got >= offset {
		t.Errorf("K should scroll back up, offset %d", got)
	}

	m = press(m, "J", "j")
	if got := m.Detail().YOffset(); got != 0 {
		t.Errorf("moving to another category should reset the scroll, offset %d", got)
	}
}

func TestModelCopyLink(t *testing.T) {
	var copied string
	saved := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = saved })

	m, _ := newTestModel(t)
	m = press(m, "y")
	if copied != "/admin/tour-categories/detail/A" {
		t.Errorf("copied %q", copied)
	}
	press(m, "Y")
	if copied != "/admin/tour-categories/edit/A" {
		t.Errorf("copied %q", copied)
	}
}

func TestModelReadOnlySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourdesk.jsonl")
	records := model.Flatten(testutil.Scenario())
	for i := range records {
		records[i].Domain = model.DomainTour
	}
	testutil.WriteJSONLFile(t, path, records)
	src, err := datasource.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}

	m := loadModel(t, src)
	m = press(m, "n")
	if m.Form() != nil {
		t.Error("a read-only source should not open forms")
	}
	if msg, isErr := m.Status(); !isErr || !strings.Contains(msg, "read-only") {
		t.Errorf("status = %q", msg)
	}
	m.statusMsg = ""
	if strings.Contains(stripANSI(m.renderFooter()), "n/N") {
		t.Error("footer should not offer edit keys")
	}
}

func TestModelFileChangeReportsDiff(t *testing.T) {
	m, s := newTestModel(t)

	if _, err := s.CreateCategory(context.Background(), model.DomainTour, "A", datasource.CategoryInput{Title: "F", Active: true}); err != nil {
		t.Fatal(err)
	}
	m, cmd := updateCmd(m, FileChangedMsg{})
	m = update(m, firstMsg(t, cmd))

	msg, isErr := m.Status()
	if isErr || !strings.Contains(msg, "+1 (6 categories)") {
		t.Errorf("status = %q", msg)
	}
	if m.Tree(model.DomainTour).HighlightID() != "" {
		t.Error("an external change should not highlight anything")
	}
}

func TestModelWriteErrorShowsStatus(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := updateCmd(m, WriteResultMsg{Op: WriteUpdate, Domain: model.DomainTour, ID: "gone", Err: datasource.ErrNotFound})
	if msg, isErr := m.Status(); !isErr || !strings.Contains(msg, "not found") {
		t.Errorf("status = %q", msg)
	}
	if _, ok := firstMsg(t, cmd).(ForestsLoadedMsg); !ok {
		t.Error("a vanished target should trigger a refetch")
	}
}

func TestModelHelpAndQuit(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "?")
	if m.FocusState() != "help" || !strings.Contains(stripANSI(m.View()), "Keyboard shortcuts") {
		t.Fatal("? should open help")
	}
	m = press(m, "x")
	if m.FocusState() != "tree" {
		t.Error("any key should close help")
	}

	_, cmd := updateCmd(m, key("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

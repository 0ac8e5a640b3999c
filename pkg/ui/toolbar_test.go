package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// hikingForest: Europe{Alps{Hiking, Skiing}, Coast(inactive)}, Asia{Trekking}
func hikingForest() []*model.Category {
	hiking := cat("hiking")
	hiking.Title = "Hiking"
	skiing := cat("skiing")
	skiing.Title = "Skiing"
	alps := cat("alps", hiking, skiing)
	alps.Title = "Alps"
	coast := cat("coast")
	coast.Title = "Coast"
	coast.Active = false
	europe := cat("europe", alps, coast)
	europe.Title = "Europe"
	trek := cat("trekking")
	trek.Title = "Trekking"
	asia := cat("asia", trek)
	asia.Title = "Asia"
	return []*model.Category{europe, asia}
}

func TestToolBarApplyKeepsAncestors(t *testing.T) {
	forest := hikingForest()
	tb := NewToolBar(NewCommandBus(), TestTheme())
	tb.SetData(forest)
	tb.SetQuery("hik")

	filtered, context := tb.Apply(forest)
	if got := strings.Join(model.IDs(filtered), ","); got != "europe,alps,hiking" {
		t.Errorf("filtered ids = %s", got)
	}
	if !context["europe"] || !context["alps"] || context["hiking"] {
		t.Errorf("context = %v", context)
	}
	if len(forest[0].Children) != 2 || len(forest[0].Children[0].Children) != 2 {
		t.Error("Apply must not modify the input forest")
	}
}

func TestToolBarStatusFilter(t *testing.T) {
	forest := hikingForest()
	tb := NewToolBar(NewCommandBus(), TestTheme())
	tb.SetData(forest)

	if f, _ := tb.Apply(forest); len(f) != 2 || &f[0] != &forest[0] {
		t.Error("with no filter active Apply should return the input unchanged")
	}

	tb.SetStatus(model.FilterInactive)
	filtered, context := tb.Apply(forest)
	if got := strings.Join(model.IDs(filtered), ","); got != "europe,coast" {
		t.Errorf("inactive ids = %s", got)
	}
	if !context["europe"] {
		t.Error("europe should be context for coast")
	}

	if tb.CycleStatus() != model.FilterAll {
		t.Error("inactive should cycle back to all")
	}
}

func TestToolBarQueryPublishesFirstMatch(t *testing.T) {
	bus := NewCommandBus()
	sub := bus.Subscribe()
	defer sub.Close()

	tb := NewToolBar(bus, TestTheme())
	tb.SetData(hikingForest())
	tb.SetQuery("ing")

	cmds := sub.Drain()
	if len(cmds) != 1 || cmds[0].Kind != CommandExpandToTarget || cmds[0].TargetID != "hiking" {
		t.Fatalf("expected ExpandToTarget(hiking), got %+v", cmds)
	}
	if got := strings.Join(tb.Matches(), ","); got != "hiking,skiing,trekking" {
		t.Errorf("matches = %s", got)
	}

	if id := tb.NextMatch(); id != "skiing" {
		t.Errorf("NextMatch = %s", id)
	}
	tb.NextMatch()
	if id := tb.NextMatch(); id != "hiking" {
		t.Errorf("NextMatch should wrap, got %s", id)
	}

	tb.SetQuery("zzz")
	if sub.Pending() != 3 {
		t.Errorf("a query without matches should publish nothing, pending %d", sub.Pending())
	}
}

func TestToolBarCollapseAll(t *testing.T) {
	bus := NewCommandBus()
	sub := bus.Subscribe()
	defer sub.Close()

	tb := NewToolBar(bus, TestTheme())
	tb.CollapseAll()
	tb.Reveal("")
	cmds := sub.Drain()
	if len(cmds) != 1 || cmds[0].Kind != CommandCollapseAll {
		t.Errorf("expected a single CollapseAll, got %+v", cmds)
	}
}

func TestToolBarTyping(t *testing.T) {
	bus := NewCommandBus()
	tb := NewToolBar(bus, TestTheme())
	tb.SetData(hikingForest())

	if changed, _ := tb.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}); changed {
		t.Error("unfocused toolbar should ignore keys")
	}

	tb.Focus()
	for _, r := range "asi" {
		tb.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if tb.Query() != "asi" {
		t.Fatalf("query = %q", tb.Query())
	}
	if tb.CurrentMatch() != "asia" {
		t.Errorf("current match = %q", tb.CurrentMatch())
	}

	tb.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if tb.Focused() || tb.Query() != "asi" {
		t.Error("enter should blur and keep the query")
	}

	tb.Focus()
	changed, _ := tb.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !changed || tb.Query() != "" || tb.Focused() {
		t.Error("esc should clear and blur")
	}
}

func TestToolBarWithTree(t *testing.T) {
	forest := hikingForest()
	tv := newMountedTree(t, forest)
	tb := NewToolBar(tv.Bus(), TestTheme())
	tb.SetData(forest)

	tb.CollapseAll()
	tv.Flush()
	if !tv.IsCollapsed("europe") || !tv.IsCollapsed("alps") {
		t.Fatal("collapse-all from toolbar should reach the tree")
	}

	tb.SetQuery("skiing")
	filtered, context := tb.Apply(forest)
	tv.SetData(filtered)
	tv.SetDimmed(context)
	tv.Flush()

	if !tv.SelectByID("skiing") {
		t.Errorf("search should reveal skiing, visible: %v", tv.VisibleIDs())
	}
}

func TestToolBarView(t *testing.T) {
	tb := NewToolBar(NewCommandBus(), TestTheme())
	tb.SetData(hikingForest())
	out := stripANSI(tb.View(80))
	if !strings.Contains(out, "/ search") || !strings.Contains(out, "status: all") {
		t.Errorf("idle view = %q", out)
	}
	tb.SetQuery("nothing-here")
	if out := stripANSI(tb.View(80)); !strings.Contains(out, "no matches") {
		t.Errorf("view should report no matches: %q", out)
	}
	if !tb.Active() {
		t.Error("toolbar with a query should be active")
	}
	tb.Clear()
	if tb.Active() {
		t.Error("Clear should deactivate")
	}
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/tourdesk/pkg/metrics"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

const maxDetailCache = 256

// DetailPane renders the selected category as markdown in a scrollable
// viewport.
type DetailPane struct {
	vp       viewport.Model
	renderer *glamour.TermRenderer
	wrap     int

	cache    map[string]string
	markdown string
	shownID  string
}

// NewDetailPane creates an empty pane.
func NewDetailPane() *DetailPane {
	return &DetailPane{
		vp:    viewport.New(40, 10),
		cache: make(map[string]string),
	}
}

// SetSize resizes the viewport and rebuilds the renderer when the wrap width
// changes.
func (d *DetailPane) SetSize(width, height int) {
	if width < 10 {
		width = 10
	}
	if height < 1 {
		height = 1
	}
	d.vp.Width = width
	d.vp.Height = height

	wrap := width - 2
	if wrap != d.wrap || d.renderer == nil {
		d.wrap = wrap
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			d.renderer = r
		}
		d.refresh()
	}
}

// Show renders c with its links and tours; nil clears the pane. The scroll
// position resets only when a different category is shown.
func (d *DetailPane) Show(c *model.Category, links Links, tours []model.Tour, showTours bool) {
	id := ""
	if c == nil {
		d.markdown = ""
	} else {
		id = c.ID
		d.markdown = DetailMarkdown(c, links, tours, showTours)
	}
	d.refresh()
	if id != d.shownID {
		d.shownID = id
		d.vp.GotoTop()
	}
}

func (d *DetailPane) refresh() {
	if d.markdown == "" {
		d.vp.SetContent("")
		return
	}
	d.vp.SetContent(d.render(d.markdown))
}

func (d *DetailPane) render(md string) string {
	key := fmt.Sprintf("%d\x00%s", d.wrap, md)
	if out, ok := d.cache[key]; ok {
		metrics.DetailRenderCache.Hit()
		return out
	}
	metrics.DetailRenderCache.Miss()

	out := md
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(md); err == nil {
			out = rendered
		}
	}
	if len(d.cache) >= maxDetailCache {
		d.cache = make(map[string]string)
	}
	d.cache[key] = out
	return out
}

// Markdown returns the source of the current content.
func (d *DetailPane) Markdown() string { return d.markdown }

func (d *DetailPane) ScrollDown() { d.vp.HalfPageDown() }
func (d *DetailPane) ScrollUp()   { d.vp.HalfPageUp() }

// YOffset returns the current scroll offset in lines.
func (d *DetailPane) YOffset() int { return d.vp.YOffset }

// View renders the viewport.
func (d *DetailPane) View() string {
	if d.markdown == "" {
		return "No category selected."
	}
	return d.vp.View()
}

// DetailMarkdown formats a category for the detail pane.
func DetailMarkdown(c *model.Category, links Links, tours []model.Tour, showTours bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", c.Title)

	status := "active"
	if !c.Active {
		status = "inactive"
	}
	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Slug | %s |\n", codeCell(c.Slug))
	fmt.Fprintf(&sb, "| Status | %s |\n", status)
	fmt.Fprintf(&sb, "| ID | %s |\n", codeCell(c.ID))
	if n := len(c.Children); n > 0 {
		fmt.Fprintf(&sb, "| Children | %d (%d total) |\n", n, model.CountDescendants(c))
	}
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "| Updated | %s |\n", FormatTimeRel(c.UpdatedAt))
	}
	fmt.Fprintf(&sb, "| Detail | %s |\n", tableCell(links.Detail(c.ID)))
	fmt.Fprintf(&sb, "| Edit | %s |\n", tableCell(links.Edit(c.ID)))

	if c.Description != "" {
		sb.WriteString("\n## Description\n\n")
		sb.WriteString(c.Description)
		sb.WriteString("\n")
	}

	if showTours {
		fmt.Fprintf(&sb, "\n## Tours (%d)\n\n", len(tours))
		if len(tours) == 0 {
			sb.WriteString("_No tours in this category._\n")
		}
		for _, t := range tours {
			fmt.Fprintf(&sb, "- **%s**", t.Title)
			if t.Days > 0 {
				fmt.Fprintf(&sb, " · %s", pluralize(t.Days, "day", "days"))
			}
			if t.PriceCents > 0 {
				fmt.Fprintf(&sb, " · %s", t.FormatPrice())
			}
			if !t.Active {
				sb.WriteString(" · _inactive_")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// tableCell escapes the characters that would end a markdown table cell.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// codeCell renders s as inline code inside a table cell, widening the fence
// when s itself contains backticks.
func codeCell(s string) string {
	if s == "" {
		return ""
	}
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if fence == "`" {
		return fence + tableCell(s) + fence
	}
	return fence + " " + tableCell(s) + " " + fence
}

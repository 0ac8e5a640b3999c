package ui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/tourdesk/internal/datasource"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// FormMode says what a CategoryForm submits.
type FormMode int

const (
	FormCreate FormMode = iota
	FormEdit
	FormDelete
)

func (m FormMode) String() string {
	switch m {
	case FormCreate:
		return "create"
	case FormEdit:
		return "edit"
	case FormDelete:
		return "delete"
	}
	return "unknown"
}

// formValues is bound by pointer into the huh fields.
type formValues struct {
	Title       string
	Slug        string
	Active      bool
	Description string
	Confirm     bool
}

// CategoryForm is the modal used to create, edit or confirm deletion of a
// category. The embedded huh.Form receives every message while shown; the
// app reads Submitted/Aborted after each update.
type CategoryForm struct {
	mode     FormMode
	domain   model.Domain
	parentID string // create: parent of the new node, "" for a root
	targetID string // edit/delete: node being changed
	heading  string

	values  *formValues
	form    *huh.Form
	aborted bool
	width   int
}

// newForm applies the shared theme. Accessible mode is used when stdin is not
// a terminal so prompts still work when piped.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		form = form.WithAccessible(true)
	}
	return form
}

// Confirm runs a standalone yes/no prompt outside the TUI.
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok).
				Affirmative("Yes").
				Negative("No"),
		),
	).Run()
	return ok, err
}

// NewCreateForm builds the form for a new category under parent (nil for a
// root). New categories start active.
func NewCreateForm(domain model.Domain, parent *model.Category) *CategoryForm {
	f := &CategoryForm{
		mode:    FormCreate,
		domain:  domain,
		values:  &formValues{Active: true},
		heading: "New root category",
	}
	if parent != nil {
		f.parentID = parent.ID
		f.heading = fmt.Sprintf("New category under %q", parent.Title)
	}
	f.form = f.buildEditor()
	return f
}

// NewEditForm builds the form prefilled from c.
func NewEditForm(domain model.Domain, c *model.Category) *CategoryForm {
	f := &CategoryForm{
		mode:     FormEdit,
		domain:   domain,
		targetID: c.ID,
		heading:  fmt.Sprintf("Edit %q", c.Title),
		values: &formValues{
			Title:       c.Title,
			Slug:        c.Slug,
			Active:      c.Active,
			Description: c.Description,
		},
	}
	f.form = f.buildEditor()
	return f
}

// NewDeleteForm asks for confirmation before deleting c and its subtree.
func NewDeleteForm(domain model.Domain, c *model.Category) *CategoryForm {
	f := &CategoryForm{
		mode:     FormDelete,
		domain:   domain,
		targetID: c.ID,
		heading:  "Delete category",
		values:   &formValues{},
	}

	desc := "This cannot be undone."
	if n := model.CountDescendants(c); n > 0 {
		desc = fmt.Sprintf("Its %s will be deleted too. This cannot be undone.",
			pluralize(n, "subcategory", "subcategories"))
	}
	f.form = newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", c.Title)).
				Description(desc).
				Value(&f.values.Confirm).
				Affirmative("Delete").
				Negative("Cancel"),
		),
	)
	return f
}

func (f *CategoryForm) buildEditor() *huh.Form {
	v := f.values
	return newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&v.Title).
				CharLimit(120).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Slug").
				DescriptionFunc(func() string {
					if s := model.Slugify(v.Title); s != "" {
						return "leave empty for " + s
					}
					return "URL segment, lowercase"
				}, &v.Title).
				Value(&v.Slug).
				CharLimit(120).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s != "" && s != model.Slugify(s) {
						return fmt.Errorf("not URL-safe, try %q", model.Slugify(s))
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Status").
				Value(&v.Active).
				Affirmative("Active").
				Negative("Inactive"),
			huh.NewText().
				Title("Description").
				Value(&v.Description).
				CharLimit(2000).
				Lines(4),
		),
	)
}

// Init starts the embedded form.
func (f *CategoryForm) Init() tea.Cmd {
	return f.form.Init()
}

// Update forwards msg to the form. Esc aborts from any field.
func (f *CategoryForm) Update(msg tea.Msg) tea.Cmd {
	if f.Done() {
		return nil
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			f.aborted = true
			return nil
		}
	case tea.WindowSizeMsg:
		f.SetWidth(msg.Width)
	}

	updated, cmd := f.form.Update(msg)
	if form, ok := updated.(*huh.Form); ok {
		f.form = form
	}
	return cmd
}

// SetWidth sizes the modal to the terminal.
func (f *CategoryForm) SetWidth(w int) {
	f.width = w
	if inner := f.innerWidth(); inner > 0 {
		f.form = f.form.WithWidth(inner)
	}
}

func (f *CategoryForm) innerWidth() int {
	w := f.width - 8
	if w > 72 {
		w = 72
	}
	return w
}

// Submitted reports whether the user completed the form. A delete counts
// only when confirmed.
func (f *CategoryForm) Submitted() bool {
	if f.aborted || f.form.State != huh.StateCompleted {
		return false
	}
	if f.mode == FormDelete {
		return f.values.Confirm
	}
	return true
}

// Aborted reports whether the user cancelled, including declining a delete.
func (f *CategoryForm) Aborted() bool {
	if f.aborted || f.form.State == huh.StateAborted {
		return true
	}
	return f.mode == FormDelete && f.form.State == huh.StateCompleted && !f.values.Confirm
}

// Done reports whether the form can be dismissed.
func (f *CategoryForm) Done() bool { return f.Submitted() || f.Aborted() }

// Input returns the normalized field values.
func (f *CategoryForm) Input() datasource.CategoryInput {
	return datasource.CategoryInput{
		Title:       f.values.Title,
		Slug:        f.values.Slug,
		Active:      f.values.Active,
		Description: f.values.Description,
	}.Normalize()
}

func (f *CategoryForm) Mode() FormMode       { return f.mode }
func (f *CategoryForm) Domain() model.Domain { return f.domain }
func (f *CategoryForm) ParentID() string     { return f.parentID }
func (f *CategoryForm) TargetID() string     { return f.targetID }

// View renders the form inside a bordered modal.
func (f *CategoryForm) View(t Theme) string {
	var sb strings.Builder
	sb.WriteString(t.PrimaryBold.Render(f.heading))
	sb.WriteString("\n\n")
	sb.WriteString(f.form.View())
	sb.WriteString("\n")
	sb.WriteString(RenderKeyHints(t, "tab", "next", "enter", "submit", "esc", "cancel"))

	style := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2)
	if inner := f.innerWidth(); inner > 0 {
		style = style.Width(inner + 4)
	}
	return style.Render(sb.String())
}

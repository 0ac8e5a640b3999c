package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/tourdesk/internal/datasource"
	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// writeTimeout bounds a single mutation against the data source.
const writeTimeout = 10 * time.Second

// WriteOp identifies a mutation.
type WriteOp string

const (
	WriteCreate WriteOp = "create"
	WriteUpdate WriteOp = "update"
	WriteDelete WriteOp = "delete"
)

// WriteResultMsg is sent when a mutation completes.
type WriteResultMsg struct {
	Op       WriteOp
	Domain   model.Domain
	ID       string          // Target id; for creates, the new id on success
	Category *model.Category // Stored category after create/update
	Err      error
}

// Success reports whether the mutation went through.
func (m WriteResultMsg) Success() bool { return m.Err == nil }

// Status formats the message shown in the status bar.
func (m WriteResultMsg) Status() string {
	if m.Err != nil {
		return fmt.Sprintf("%s failed: %v", m.Op, m.Err)
	}
	switch m.Op {
	case WriteCreate:
		return fmt.Sprintf("Created %q", m.title())
	case WriteUpdate:
		return fmt.Sprintf("Saved %q", m.title())
	default:
		return fmt.Sprintf("Deleted %s", m.ID)
	}
}

func (m WriteResultMsg) title() string {
	if m.Category != nil {
		return m.Category.Title
	}
	return m.ID
}

// CategoryWriter turns mutations into tea.Cmds that run against a data
// source off the UI goroutine.
type CategoryWriter struct {
	src datasource.Source
}

// NewCategoryWriter creates a writer for src.
func NewCategoryWriter(src datasource.Source) *CategoryWriter {
	return &CategoryWriter{src: src}
}

// ReadOnly reports whether the source rejects mutations.
func (w *CategoryWriter) ReadOnly() bool {
	return w == nil || w.src == nil || w.src.Type() != datasource.SourceTypeSQLite
}

// Create inserts a category under parentID ("" for a root).
func (w *CategoryWriter) Create(domain model.Domain, parentID string, in datasource.CategoryInput) tea.Cmd {
	if w.ReadOnly() {
		return unavailableCmd(WriteCreate, domain, parentID)
	}
	src := w.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		c, err := src.CreateCategory(ctx, domain, parentID, in)
		if err != nil {
			debug.Log("create under %q failed: %v", parentID, err)
			return WriteResultMsg{Op: WriteCreate, Domain: domain, ID: parentID, Err: err}
		}
		return WriteResultMsg{Op: WriteCreate, Domain: domain, ID: c.ID, Category: &c}
	}
}

// Update overwrites the editable fields of id.
func (w *CategoryWriter) Update(domain model.Domain, id string, in datasource.CategoryInput) tea.Cmd {
	if w.ReadOnly() {
		return unavailableCmd(WriteUpdate, domain, id)
	}
	src := w.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		c, err := src.UpdateCategory(ctx, id, in)
		if err != nil {
			return WriteResultMsg{Op: WriteUpdate, Domain: domain, ID: id, Err: err}
		}
		return WriteResultMsg{Op: WriteUpdate, Domain: domain, ID: id, Category: &c}
	}
}

// Delete removes id and its descendants.
func (w *CategoryWriter) Delete(domain model.Domain, id string) tea.Cmd {
	if w.ReadOnly() {
		return unavailableCmd(WriteDelete, domain, id)
	}
	src := w.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		return WriteResultMsg{Op: WriteDelete, Domain: domain, ID: id, Err: src.DeleteCategory(ctx, id)}
	}
}

func unavailableCmd(op WriteOp, domain model.Domain, id string) tea.Cmd {
	return func() tea.Msg {
		return WriteResultMsg{Op: op, Domain: domain, ID: id, Err: datasource.ErrReadOnly}
	}
}

// IsNotFound reports whether a write failed because the target vanished,
// typically after a concurrent delete.
func IsNotFound(err error) bool {
	return errors.Is(err, datasource.ErrNotFound)
}

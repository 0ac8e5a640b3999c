package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/tourdesk/internal/datasource"
	"github.com/vanderheijden86/tourdesk/pkg/model"
	"github.com/vanderheijden86/tourdesk/pkg/watcher"
)

const fetchTimeout = 15 * time.Second

// ForestsLoadedMsg carries freshly fetched forests. Reveal, when set, is the
// id to expand to and highlight once the data is in place.
type ForestsLoadedMsg struct {
	Results []datasource.LoadResult
	Reveal  string
	Err     error
}

// ToursLoadedMsg carries the tours of one category.
type ToursLoadedMsg struct {
	CategoryID string
	Tours      []model.Tour
	Err        error
}

// FileChangedMsg is sent when the watched data file changes on disk.
type FileChangedMsg struct{}

// LoadForestsCmd fetches every domain in the background.
func LoadForestsCmd(src datasource.Source, domains []model.Domain, reveal string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		results, err := datasource.LoadAll(ctx, src, domains)
		return ForestsLoadedMsg{Results: results, Reveal: reveal, Err: err}
	}
}

// LoadToursCmd fetches the tours attached to categoryID.
func LoadToursCmd(src datasource.Source, categoryID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		tours, err := src.LoadTours(ctx, categoryID)
		return ToursLoadedMsg{CategoryID: categoryID, Tours: tours, Err: err}
	}
}

// WatchFileCmd blocks until the watcher reports a change.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

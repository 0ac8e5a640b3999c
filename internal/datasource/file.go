package datasource

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/loader"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// FileSource serves categories from a JSONL export. It is read-only: every
// mutation returns ErrReadOnly. The file is re-read whenever its size or
// modification time changes, so a watcher-triggered refetch sees new data.
type FileSource struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	ds      *loader.Dataset

	// Warn receives parse warnings; nil discards them.
	Warn func(string)
}

// OpenFile opens a JSONL source. The file must exist.
func OpenFile(path string) (*FileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open data file: %w", err)
	}
	return &FileSource{path: path}, nil
}

// Type implements Source.
func (f *FileSource) Type() SourceType { return SourceTypeJSONL }

// Path implements Source.
func (f *FileSource) Path() string { return f.path }

// Close implements Source.
func (f *FileSource) Close() error { return nil }

// Dataset returns the current parsed contents of the file.
func (f *FileSource) Dataset() (*loader.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat data file: %w", err)
	}
	if f.ds != nil && info.ModTime().Equal(f.modTime) && info.Size() == f.size {
		return f.ds, nil
	}

	warn := f.Warn
	if warn == nil {
		warn = func(msg string) { debug.Log("%s: %s", f.path, msg) }
	}
	ds, err := loader.LoadFileWithOptions(f.path, loader.ParseOptions{WarningHandler: warn})
	if err != nil {
		return nil, err
	}
	f.ds, f.modTime, f.size = ds, info.ModTime(), info.Size()
	return ds, nil
}

// LoadForest implements Source.
func (f *FileSource) LoadForest(ctx context.Context, domain model.Domain) ([]*model.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := f.Dataset()
	if err != nil {
		return nil, err
	}
	return ds.Forest(domain), nil
}

// LoadTours implements Source.
func (f *FileSource) LoadTours(ctx context.Context, categoryID string) ([]model.Tour, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := f.Dataset()
	if err != nil {
		return nil, err
	}
	return ds.ToursFor(categoryID), nil
}

// CreateCategory implements Source.
func (f *FileSource) CreateCategory(context.Context, model.Domain, string, CategoryInput) (model.Category, error) {
	return model.Category{}, ErrReadOnly
}

// UpdateCategory implements Source.
func (f *FileSource) UpdateCategory(context.Context, string, CategoryInput) (model.Category, error) {
	return model.Category{}, ErrReadOnly
}

// DeleteCategory implements Source.
func (f *FileSource) DeleteCategory(context.Context, string) error {
	return ErrReadOnly
}

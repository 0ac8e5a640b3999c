// Package datasource provides the data-fetch and mutation collaborators behind
// the category trees: a SQLite store for read/write use and a read-only JSONL
// file source. Both satisfy Source.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/tourdesk/pkg/loader"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// Common source errors.
var (
	ErrNotFound = errors.New("category not found")
	ErrReadOnly = errors.New("data source is read-only")
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database (tourdesk.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONL is a JSONL export file
	SourceTypeJSONL SourceType = "jsonl"
)

// DefaultDBName is the database file looked up inside a data directory.
const DefaultDBName = "tourdesk.db"

// CategoryInput holds the editable fields of a category.
type CategoryInput struct {
	Title       string
	Slug        string
	Active      bool
	Description string
}

// Normalize trims fields and derives the slug from the title when empty.
func (in CategoryInput) Normalize() CategoryInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = model.Slugify(in.Title)
	}
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// Validate checks the input before it reaches a store.
func (in CategoryInput) Validate() error {
	if in.Title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if in.Slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if in.Slug != model.Slugify(in.Slug) {
		return fmt.Errorf("slug %q is not URL-safe (try %q)", in.Slug, model.Slugify(in.Slug))
	}
	return nil
}

// Source is the backend a category tree is fetched from and written to.
// Forests returned by LoadForest are fresh snapshots owned by the caller.
type Source interface {
	Type() SourceType
	Path() string

	LoadForest(ctx context.Context, domain model.Domain) ([]*model.Category, error)
	LoadTours(ctx context.Context, categoryID string) ([]model.Tour, error)

	// CreateCategory adds a category under parentID ("" for a root) as the
	// last child and returns the stored record.
	CreateCategory(ctx context.Context, domain model.Domain, parentID string, in CategoryInput) (model.Category, error)
	UpdateCategory(ctx context.Context, id string, in CategoryInput) (model.Category, error)
	// DeleteCategory removes the category and its whole subtree.
	DeleteCategory(ctx context.Context, id string) error

	Close() error
}

// DetectType guesses the source type from a path.
func DetectType(path string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	case ".jsonl":
		return SourceTypeJSONL, nil
	}
	return "", fmt.Errorf("unrecognized data file %s (want .db or .jsonl)", path)
}

// Open opens the source at path. A directory resolves to its tourdesk.db if
// present, then to its preferred JSONL file, and finally to a new tourdesk.db.
func Open(path string) (Source, error) {
	resolved, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	typ, err := DetectType(resolved)
	if err != nil {
		return nil, err
	}
	switch typ {
	case SourceTypeSQLite:
		return OpenStore(resolved)
	default:
		return OpenFile(resolved)
	}
}

// Resolve maps a user-supplied data path to a concrete file.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing .db is created on open; anything else must exist.
			if typ, terr := DetectType(path); terr == nil && typ == SourceTypeSQLite {
				return path, nil
			}
		}
		return "", fmt.Errorf("cannot access data path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	db := filepath.Join(path, DefaultDBName)
	if _, err := os.Stat(db); err == nil {
		return db, nil
	}
	if jsonl, err := loader.FindDataFile(path); err == nil {
		return jsonl, nil
	}
	return db, nil
}

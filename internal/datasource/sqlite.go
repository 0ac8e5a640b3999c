package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/loader"
	"github.com/vanderheijden86/tourdesk/pkg/metrics"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// ErrDuplicateSlug is returned when a slug is already used in the domain.
var ErrDuplicateSlug = errors.New("slug already exists in this domain")

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id          TEXT PRIMARY KEY,
	parent_id   TEXT REFERENCES categories(id) ON DELETE CASCADE,
	domain      TEXT NOT NULL,
	title       TEXT NOT NULL,
	slug        TEXT NOT NULL,
	active      INTEGER NOT NULL DEFAULT 1,
	description TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_slug ON categories(domain, slug);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(domain, parent_id, position);

CREATE TABLE IF NOT EXISTS tours (
	id          TEXT PRIMARY KEY,
	category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
	title       TEXT NOT NULL,
	slug        TEXT NOT NULL,
	days        INTEGER NOT NULL DEFAULT 0,
	price_cents INTEGER NOT NULL DEFAULT 0,
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tours_category ON tours(category_id);
`

const categoryColumns = `id, parent_id, domain, title, slug, active, description, position, created_at, updated_at`

// Store is the read/write SQLite backend.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenStore opens (and if needed creates) the database at path. Use
// ":memory:" for a throwaway store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps foreign_keys on
	// for every statement and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	debug.Log("opened store %s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Type implements Source.
func (s *Store) Type() SourceType { return SourceTypeSQLite }

// Path implements Source.
func (s *Store) Path() string { return s.path }

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetClock overrides the timestamp source (tests).
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// LoadForest reads every category of domain and assembles the forest.
func (s *Store) LoadForest(ctx context.Context, domain model.Domain) ([]*model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE domain = ? ORDER BY position, created_at, id`,
		string(domain))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var flat []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		flat = append(flat, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return model.BuildForest(flat), nil
}

// Get returns a single category without children.
func (s *Store) Get(ctx context.Context, id string) (model.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, err
}

// CreateCategory implements Source.
func (s *Store) CreateCategory(ctx context.Context, domain model.Domain, parentID string, in CategoryInput) (model.Category, error) {
	defer metrics.Timer(metrics.StoreWrite)()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return model.Category{}, err
	}
	if !domain.IsValid() {
		return model.Category{}, fmt.Errorf("invalid domain: %s", domain)
	}

	var parent sql.NullString
	if parentID != "" {
		p, err := s.Get(ctx, parentID)
		if err != nil {
			return model.Category{}, err
		}
		if p.Domain != domain {
			return model.Category{}, fmt.Errorf("parent %s belongs to %s, not %s", parentID, p.Domain, domain)
		}
		parent = sql.NullString{String: parentID, Valid: true}
	}

	var position int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM categories WHERE domain = ? AND parent_id IS ?`,
		string(domain), parent).Scan(&position)
	if err != nil {
		return model.Category{}, fmt.Errorf("failed to compute position: %w", err)
	}

	now := s.now().UTC()
	c := model.Category{
		ID:          uuid.NewString(),
		ParentID:    parentID,
		Domain:      domain,
		Title:       in.Title,
		Slug:        in.Slug,
		Active:      in.Active,
		Description: in.Description,
		Position:    position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.insert(ctx, s.db, c); err != nil {
		return model.Category{}, err
	}
	debug.Log("created category %s (%s) under %q", c.ID, c.Slug, parentID)
	return c, nil
}

// UpdateCategory implements Source.
func (s *Store) UpdateCategory(ctx context.Context, id string, in CategoryInput) (model.Category, error) {
	defer metrics.Timer(metrics.StoreWrite)()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return model.Category{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET title = ?, slug = ?, active = ?, description = ?, updated_at = ? WHERE id = ?`,
		in.Title, in.Slug, in.Active, in.Description, formatTime(s.now().UTC()), id)
	if err != nil {
		return model.Category{}, mapConstraintError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Category{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

// DeleteCategory implements Source. The schema cascades to descendants.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	defer metrics.Timer(metrics.StoreWrite)()

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	debug.Log("deleted category %s", id)
	return nil
}

// LoadTours implements Source.
func (s *Store) LoadTours(ctx context.Context, categoryID string) ([]model.Tour, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, title, slug, days, price_cents, active, created_at
		 FROM tours WHERE category_id = ? ORDER BY title, id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var tours []model.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tours: %w", err)
	}
	return tours, nil
}

// AddTour stores a tour, assigning an id when empty.
func (s *Store) AddTour(ctx context.Context, t model.Tour) (model.Tour, error) {
	defer metrics.Timer(metrics.StoreWrite)()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Slug == "" {
		t.Slug = model.Slugify(t.Title)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	if err := t.Validate(); err != nil {
		return model.Tour{}, err
	}
	if err := s.insertTour(ctx, s.db, t); err != nil {
		return model.Tour{}, err
	}
	return t, nil
}

// Import upserts a dataset in one transaction. Categories are re-assembled
// per domain first so parents are written before children; rows whose parent
// is missing are imported as roots.
func (s *Store) Import(ctx context.Context, ds *loader.Dataset) (int, error) {
	defer metrics.Timer(metrics.StoreWrite)()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n := 0
	now := s.now().UTC()
	for _, domain := range model.AllDomains {
		var rows []model.Category
		for _, c := range ds.Categories {
			if c.Domain == domain {
				rows = append(rows, c)
			}
		}
		for _, c := range model.Flatten(model.BuildForest(rows)) {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			if c.UpdatedAt.IsZero() {
				c.UpdatedAt = c.CreatedAt
			}
			if err := s.insert(ctx, tx, c); err != nil {
				return 0, fmt.Errorf("importing %s: %w", c.ID, err)
			}
			n++
		}
	}
	for _, t := range ds.Tours {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if err := s.insertTour(ctx, tx, t); err != nil {
			return 0, fmt.Errorf("importing tour %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// Export returns every category (parents first, per domain) and every tour.
func (s *Store) Export(ctx context.Context) (*loader.Dataset, error) {
	ds := &loader.Dataset{}
	for _, domain := range model.AllDomains {
		forest, err := s.LoadForest(ctx, domain)
		if err != nil {
			return nil, err
		}
		ds.Categories = append(ds.Categories, model.Flatten(forest)...)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, title, slug, days, price_cents, active, created_at FROM tours ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		ds.Tours = append(ds.Tours, t)
	}
	return ds, rows.Err()
}

// CountCategories returns the number of categories in domain.
func (s *Store) CountCategories(ctx context.Context, domain model.Domain) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE domain = ?`, string(domain)).Scan(&count)
	return count, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, db execer, c model.Category) error {
	var parent sql.NullString
	if c.ParentID != "" {
		parent = sql.NullString{String: c.ParentID, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id, domain = excluded.domain,
			title = excluded.title, slug = excluded.slug, active = excluded.active,
			description = excluded.description, position = excluded.position,
			updated_at = excluded.updated_at`,
		c.ID, parent, string(c.Domain), c.Title, c.Slug, c.Active, c.Description, c.Position,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	return mapConstraintError(err)
}

func (s *Store) insertTour(ctx context.Context, db execer, t model.Tour) error {
	var cat sql.NullString
	if t.CategoryID != "" {
		cat = sql.NullString{String: t.CategoryID, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO tours (id, category_id, title, slug, days, price_cents, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id, title = excluded.title, slug = excluded.slug,
			days = excluded.days, price_cents = excluded.price_cents, active = excluded.active`,
		t.ID, cat, t.Title, t.Slug, t.Days, t.PriceCents, t.Active, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert tour failed: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (model.Category, error) {
	var c model.Category
	var parent sql.NullString
	var domain, createdAt, updatedAt string
	err := row.Scan(&c.ID, &parent, &domain, &c.Title, &c.Slug, &c.Active,
		&c.Description, &c.Position, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan category: %w", err)
	}
	c.ParentID = parent.String
	c.Domain = model.Domain(domain)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

func scanTour(row scanner) (model.Tour, error) {
	var t model.Tour
	var cat sql.NullString
	var createdAt string
	if err := row.Scan(&t.ID, &cat, &t.Title, &t.Slug, &t.Days, &t.PriceCents, &t.Active, &createdAt); err != nil {
		return t, fmt.Errorf("scan tour: %w", err)
	}
	t.CategoryID = cat.String
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// mapConstraintError turns SQLite constraint failures into sentinel errors.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: categories.domain, categories.slug"):
		return fmt.Errorf("%w: %v", ErrDuplicateSlug, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: parent does not exist", ErrNotFound)
	}
	return fmt.Errorf("write failed: %w", err)
}

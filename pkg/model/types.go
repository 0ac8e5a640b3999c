package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Common validation errors.
var (
	ErrEmptyID     = errors.New("category ID cannot be empty")
	ErrDuplicateID = errors.New("duplicate category ID")
	ErrCycle       = errors.New("category is its own descendant")
	ErrTooDeep     = errors.New("category tree exceeds maximum depth")
)

// Category is a node in a content category tree (tour, news or gallery).
//
// Children is the display order as delivered by the data source. The view
// layer treats a Category as a read-only snapshot and never reorders or
// mutates Children.
type Category struct {
	ID          string      `json:"id"`
	ParentID    string      `json:"parent_id,omitempty"`
	Domain      Domain      `json:"domain,omitempty"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Active      bool        `json:"active"`
	Description string      `json:"description,omitempty"`
	Position    int         `json:"position,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
	UpdatedAt   time.Time   `json:"updated_at,omitzero"`
	Children    []*Category `json:"children,omitempty"`
}

// HasChildren reports whether the category has at least one child.
func (c *Category) HasChildren() bool {
	return c != nil && len(c.Children) > 0
}

// Validate checks the fields of a single category (not its subtree).
func (c *Category) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("category %s: title cannot be empty", c.ID)
	}
	if c.Slug != "" && c.Slug != Slugify(c.Slug) {
		return fmt.Errorf("category %s: slug %q is not URL-safe", c.ID, c.Slug)
	}
	if c.Domain != "" && !c.Domain.IsValid() {
		return fmt.Errorf("category %s: invalid domain: %s", c.ID, c.Domain)
	}
	if !c.UpdatedAt.IsZero() && !c.CreatedAt.IsZero() && c.UpdatedAt.Before(c.CreatedAt) {
		return fmt.Errorf("category %s: updated_at (%v) cannot be before created_at (%v)", c.ID, c.UpdatedAt, c.CreatedAt)
	}
	return nil
}

// Clone returns a shallow copy of the category without its children.
func (c *Category) Clone() *Category {
	clone := *c
	clone.Children = []*Category{}
	return &clone
}

// Domain identifies one of the category trees managed by the back office.
type Domain string

const (
	DomainTour    Domain = "tours"
	DomainNews    Domain = "news"
	DomainGallery Domain = "gallery"
)

// AllDomains lists the domains in tab order.
var AllDomains = []Domain{DomainTour, DomainNews, DomainGallery}

// IsValid returns true if the domain is a recognized value
func (d Domain) IsValid() bool {
	switch d {
	case DomainTour, DomainNews, DomainGallery:
		return true
	}
	return false
}

// DefaultBasePath returns the admin route prefix for the domain.
func (d Domain) DefaultBasePath() string {
	switch d {
	case DomainTour:
		return "/admin/tour-categories"
	case DomainNews:
		return "/admin/news-categories"
	case DomainGallery:
		return "/admin/gallery-categories"
	default:
		return "/admin/" + string(d)
	}
}

// Label returns a short display name.
func (d Domain) Label() string {
	switch d {
	case DomainTour:
		return "Tours"
	case DomainNews:
		return "News"
	case DomainGallery:
		return "Gallery"
	default:
		return string(d)
	}
}

// ParseDomain accepts a domain name or a common alias ("tour", "photos").
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tours", "tour":
		return DomainTour, nil
	case "news":
		return DomainNews, nil
	case "gallery", "galleries", "photos":
		return DomainGallery, nil
	}
	return "", fmt.Errorf("unknown domain %q (want tours, news or gallery)", s)
}

// StatusFilter selects categories by their Active flag.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterActive   StatusFilter = "active"
	FilterInactive StatusFilter = "inactive"
)

// Matches reports whether a category passes the filter.
func (f StatusFilter) Matches(c *Category) bool {
	switch f {
	case FilterActive:
		return c.Active
	case FilterInactive:
		return !c.Active
	default:
		return true
	}
}

// Next cycles all -> active -> inactive -> all.
func (f StatusFilter) Next() StatusFilter {
	switch f {
	case FilterAll, "":
		return FilterActive
	case FilterActive:
		return FilterInactive
	default:
		return FilterAll
	}
}

// ParseStatusFilter parses a filter name; empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterInactive:
		return FilterInactive, nil
	}
	return FilterAll, fmt.Errorf("invalid status filter %q", s)
}

// Tour is a bookable tour filed under a tour category.
type Tour struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id,omitempty"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Days       int       `json:"days,omitempty"`
	PriceCents int64     `json:"price_cents,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

// Validate checks if the tour data is logically valid
func (t *Tour) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tour ID cannot be empty")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("tour %s: title cannot be empty", t.ID)
	}
	if t.Days < 0 {
		return fmt.Errorf("tour %s: days cannot be negative", t.ID)
	}
	if t.PriceCents < 0 {
		return fmt.Errorf("tour %s: price cannot be negative", t.ID)
	}
	return nil
}

// FormatPrice renders PriceCents as a decimal amount.
func (t Tour) FormatPrice() string {
	return fmt.Sprintf("%d.%02d", t.PriceCents/100, t.PriceCents%100)
}

// letterFolds covers Latin letters that do not decompose into a base letter
// plus combining marks.
var letterFolds = map[rune]string{
	'đ': "d", 'ð': "d", 'ø': "o", 'ł': "l", 'ß': "ss", 'æ': "ae", 'œ': "oe", 'þ': "th",
}

// Slugify lowercases s, strips diacritics (so "Đà Lạt" becomes "da-lat") and
// joins the remaining ASCII letter/digit runs with single hyphens. Scripts
// with no Latin form are dropped.
func Slugify(s string) string {
	// A chained transformer holds state, so each call builds its own.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var sb strings.Builder
	pendingDash := false
	emit := func(part string) {
		if pendingDash && sb.Len() > 0 {
			sb.WriteByte('-')
		}
		pendingDash = false
		sb.WriteString(part)
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			emit(string(r))
		case letterFolds[r] != "":
			emit(letterFolds[r])
		default:
			pendingDash = true
		}
	}
	return sb.String()
}

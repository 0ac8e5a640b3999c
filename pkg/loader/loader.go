package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/tourdesk/pkg/metrics"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// PreferredJSONLNames defines the priority order for looking up data files.
var PreferredJSONLNames = []string{"tourdesk.jsonl", "categories.jsonl"}

// Record kinds. A line without a "kind" is a category.
const (
	KindCategory = "category"
	KindTour     = "tour"
)

// Dataset is everything read from one JSONL file: flat category rows for all
// domains and the tours filed under tour categories. Rows keep file order.
type Dataset struct {
	Categories []model.Category
	Tours      []model.Tour
}

// Forest assembles the categories of one domain into a forest.
func (d *Dataset) Forest(domain model.Domain) []*model.Category {
	var rows []model.Category
	for _, c := range d.Categories {
		if c.Domain == domain {
			rows = append(rows, c)
		}
	}
	return model.BuildForest(rows)
}

// ToursFor returns the tours filed under categoryID.
func (d *Dataset) ToursFor(categoryID string) []model.Tour {
	var out []model.Tour
	for _, t := range d.Tours {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out
}

// FindDataFile locates the JSONL data file in dir.
// Skips backup files and merge artifacts.
func FindDataFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read data directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		if strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") ||
			strings.Contains(name, ".merge") {
			continue
		}
		candidates = append(candidates, name)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no JSONL data file found in %s", dir)
	}

	for _, preferred := range PreferredJSONLNames {
		for _, name := range candidates {
			if name == preferred {
				return filepath.Join(dir, name), nil
			}
		}
	}

	// Fall back to first non-empty candidate
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return path, nil
		}
	}
	return filepath.Join(dir, candidates[0]), nil
}

// DefaultMaxBufferSize is the default buffer size for the reader (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of Parse.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int

	// DefaultDomain is assigned to categories without a domain.
	// If empty, model.DomainTour is used.
	DefaultDomain model.Domain

	// DomainFilter optionally restricts which domains are kept.
	DomainFilter func(model.Domain) bool
}

// LoadFile reads a dataset from a JSONL file.
func LoadFile(path string) (*Dataset, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions reads a dataset from a JSONL file with custom options.
func LoadFileWithOptions(path string, opts ParseOptions) (*Dataset, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no data file found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	return ParseWithOptions(file, opts)
}

// Parse parses JSONL content from a reader.
// Handles UTF-8 BOM stripping, large lines, and validation.
func Parse(r io.Reader) (*Dataset, error) {
	return ParseWithOptions(r, ParseOptions{})
}

// envelope peeks at the discriminator before decoding the full record.
type envelope struct {
	Kind string `json:"kind"`
}

// ParseWithOptions parses JSONL content with custom options. Malformed and
// invalid lines are skipped with a warning; only read errors are returned.
func ParseWithOptions(r io.Reader, opts ParseOptions) (*Dataset, error) {
	defer metrics.Timer(metrics.JSONLParse)()

	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}
	defaultDomain := opts.DefaultDomain
	if defaultDomain == "" {
		defaultDomain = model.DomainTour
	}

	ds := &Dataset{}
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading data stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}

		switch strings.ToLower(strings.TrimSpace(env.Kind)) {
		case "", KindCategory:
			var c model.Category
			if err := json.Unmarshal(line, &c); err != nil {
				warn(fmt.Sprintf("skipping malformed category on line %d: %v", lineNum, err))
				continue
			}
			c.Domain = normalizeDomain(c.Domain, defaultDomain)
			// Nested children in the flat form are ignored; hierarchy comes from parent_id.
			c.Children = nil
			if err := c.Validate(); err != nil {
				warn(fmt.Sprintf("skipping invalid category on line %d: %v", lineNum, err))
				continue
			}
			if opts.DomainFilter != nil && !opts.DomainFilter(c.Domain) {
				continue
			}
			ds.Categories = append(ds.Categories, c)

		case KindTour:
			var t model.Tour
			if err := json.Unmarshal(line, &t); err != nil {
				warn(fmt.Sprintf("skipping malformed tour on line %d: %v", lineNum, err))
				continue
			}
			if err := t.Validate(); err != nil {
				warn(fmt.Sprintf("skipping invalid tour on line %d: %v", lineNum, err))
				continue
			}
			ds.Tours = append(ds.Tours, t)

		default:
			warn(fmt.Sprintf("skipping line %d: unknown record kind %q", lineNum, env.Kind))
		}
	}

	return ds, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

func normalizeDomain(d, fallback model.Domain) model.Domain {
	trimmed := strings.TrimSpace(string(d))
	if trimmed == "" {
		return fallback
	}
	if parsed, err := model.ParseDomain(trimmed); err == nil {
		return parsed
	}
	return model.Domain(strings.ToLower(trimmed))
}

package loader

import (
	"bufio"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/tourdesk/pkg/model"
)

type categoryRecord struct {
	Kind string `json:"kind"`
	model.Category
}

type tourRecord struct {
	Kind string `json:"kind"`
	model.Tour
}

// Write encodes the dataset as JSONL: categories first, then tours, one
// record per line. Categories are written flat; Children is dropped.
func Write(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for _, c := range ds.Categories {
		c.Children = nil
		if err := enc.Encode(categoryRecord{Kind: KindCategory, Category: c}); err != nil {
			return fmt.Errorf("encoding category %s: %w", c.ID, err)
		}
	}
	for _, t := range ds.Tours {
		if err := enc.Encode(tourRecord{Kind: KindTour, Tour: t}); err != nil {
			return fmt.Errorf("encoding tour %s: %w", t.ID, err)
		}
	}
	return bw.Flush()
}

// WriteForest flattens a forest and writes it as category records.
func WriteForest(w io.Writer, forest []*model.Category) error {
	return Write(w, &Dataset{Categories: model.Flatten(forest)})
}

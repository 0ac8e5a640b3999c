// +build ignore

// generate_testdata.go creates category datasets for benchmarking the tree.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//   testdata/benchmark/small.jsonl   (100 categories per domain)
//   testdata/benchmark/medium.jsonl  (1000 categories per domain)
//   testdata/benchmark/large.jsonl   (5000 categories per domain)
//   testdata/benchmark/deep.jsonl    (one chain at the depth limit)
//
// Open one with: tourdesk --data testdata/benchmark/large.jsonl
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/tourdesk/pkg/model"
	"github.com/vanderheijden86/tourdesk/pkg/testutil"
)

type datasetSpec struct {
	name  string
	size  int
	shape string
}

var datasets = []datasetSpec{
	{"small", 100, "random"},
	{"medium", 1000, "random"},
	{"large", 5000, "random"},
	{"deep", model.MaxTreeDepth, "chain"},
}

var titles = map[model.Domain][]string{
	model.DomainTour:    {"Alpine Treks", "Coastal Walks", "City Breaks", "Wine Routes", "Island Hopping", "Desert Camps"},
	model.DomainNews:    {"Press Releases", "Trip Reports", "Partner News", "Announcements"},
	model.DomainGallery: {"Summits", "Villages", "Wildlife", "Guides at Work", "Huts"},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d categories per domain)...\n", ds.name, ds.size)

		var records []model.Category
		for i, domain := range model.AllDomains {
			gen := testutil.New(testutil.GeneratorConfig{
				Seed:        int64(ds.size*10 + i), // Reproducible per size and domain
				IDPrefix:    strings.ToUpper(string(domain)),
				Domain:      domain,
				ActiveRatio: 0.85,
			})
			var batch []model.Category
			if ds.shape == "chain" {
				batch = gen.Chain(ds.size)
			} else {
				batch = gen.Random(ds.size)
			}
			nameRecords(batch, domain)
			records = append(records, batch...)
		}

		jsonl := testutil.ToJSONL(records)
		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d records)\n", outputPath, len(jsonl), len(records))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}

func nameRecords(records []model.Category, domain model.Domain) {
	pool := titles[domain]
	for i := range records {
		title := fmt.Sprintf("%s %d", pool[i%len(pool)], i)
		records[i].Title = title
		records[i].Slug = model.Slugify(title)
		if i%3 == 0 {
			records[i].Description = "Seasonal selection.\n\n- Guided\n- Small groups"
		}
	}
}

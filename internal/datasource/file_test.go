package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/tourdesk/pkg/model"
	"github.com/vanderheijden86/tourdesk/pkg/testutil"
)

func TestFileSourceLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourdesk.jsonl")
	testutil.WriteJSONLFile(t, path, testutil.NewDefault().Tree(2, 2))

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	forest, err := src.LoadForest(ctx, model.DomainTour)
	if err != nil {
		t.Fatalf("LoadForest: %v", err)
	}
	testutil.AssertCount(t, forest, 7)

	again, _ := src.LoadForest(ctx, model.DomainTour)
	if again[0] == forest[0] {
		t.Error("each load should return a fresh snapshot")
	}

	// Rewrite with a different shape; bump mtime in case the filesystem
	// timestamp granularity hides the change.
	testutil.WriteJSONLFile(t, path, testutil.NewDefault().Wide(3))
	later := time.Now().Add(2 * time.Second)
	os.Chtimes(path, later, later)

	forest, err = src.LoadForest(ctx, model.DomainTour)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertCount(t, forest, 3)
}

func TestFileSourceIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourdesk.jsonl")
	testutil.WriteJSONLFile(t, path, testutil.NewDefault().Wide(1))
	src, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := src.CreateCategory(ctx, model.DomainTour, "", CategoryInput{Title: "X"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("create: %v", err)
	}
	if _, err := src.UpdateCategory(ctx, "cat-0", CategoryInput{Title: "X"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("update: %v", err)
	}
	if err := src.DeleteCategory(ctx, "cat-0"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("delete: %v", err)
	}
}

func TestFileSourceTours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourdesk.jsonl")
	content := `{"id":"alps","title":"Alps","slug":"alps","active":true}
{"kind":"tour","id":"t1","category_id":"alps","title":"Haute Route","slug":"haute-route","days":7,"active":true}
{"kind":"tour","id":"t2","category_id":"other","title":"Elsewhere","slug":"elsewhere","active":true}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	src, _ := OpenFile(path)
	tours, err := src.LoadTours(context.Background(), "alps")
	if err != nil {
		t.Fatal(err)
	}
	if len(tours) != 1 || tours[0].ID != "t1" {
		t.Errorf("tours = %+v", tours)
	}
}

func TestFileSourceCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourdesk.jsonl")
	testutil.WriteJSONLFile(t, path, testutil.NewDefault().Wide(1))
	src, _ := OpenFile(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.LoadForest(ctx, model.DomainTour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOpenFileMissing(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

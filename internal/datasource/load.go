package datasource

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/metrics"
	"github.com/vanderheijden86/tourdesk/pkg/model"
)

// LoadResult is the outcome of fetching one domain's forest.
type LoadResult struct {
	Domain model.Domain
	Forest []*model.Category
	Error  error
}

// LoadAll fetches the forest of every domain concurrently. A failure in one
// domain is captured in its result and does not cancel the others; the
// returned error is reserved for context cancellation.
func LoadAll(ctx context.Context, src Source, domains []model.Domain) ([]LoadResult, error) {
	defer metrics.Timer(metrics.ForestLoad)()
	start := time.Now()

	results := make([]LoadResult, len(domains))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(len(model.AllDomains))

	for i, domain := range domains {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = LoadResult{Domain: domain, Error: ctx.Err()}
				return ctx.Err()
			default:
			}

			forest, err := src.LoadForest(ctx, domain)
			if err != nil {
				err = fmt.Errorf("loading %s: %w", domain, err)
			}
			results[i] = LoadResult{Domain: domain, Forest: model.Normalize(forest), Error: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	debug.LogTiming(fmt.Sprintf("LoadAll(%d domains)", len(domains)), time.Since(start))
	return results, nil
}

// Forests collects successful results into a map, returning the first error.
func Forests(results []LoadResult) (map[model.Domain][]*model.Category, error) {
	out := make(map[model.Domain][]*model.Category, len(results))
	var firstErr error
	for _, r := range results {
		if r.Error != nil {
			if firstErr == nil {
				firstErr = r.Error
			}
			continue
		}
		out[r.Domain] = r.Forest
	}
	return out, firstErr
}

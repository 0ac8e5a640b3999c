package metrics

import (
	"sync/atomic"

	"github.com/goccy/go-json"
)

// CacheMetric counts hits and misses for a named cache.
type CacheMetric struct {
	name   string
	hits   atomic.Int64
	misses atomic.Int64
}

func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// Hit records a cache hit.
func (c *CacheMetric) Hit() {
	if Enabled() {
		c.hits.Add(1)
	}
}

// Miss records a cache miss.
func (c *CacheMetric) Miss() {
	if Enabled() {
		c.misses.Add(1)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *CacheMetric) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{Name: c.name, Hits: hits, Misses: misses, HitRate: rate}
}

// Reset clears the counters.
func (c *CacheMetric) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// CacheStats holds a snapshot of cache statistics.
type CacheStats struct {
	Name    string  `json:"name"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// DetailRenderCache tracks the rendered-markdown cache in the detail pane.
var DetailRenderCache = newCacheMetric("detail_render")

// AllCacheMetrics returns all registered cache metrics.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{DetailRenderCache}
}

// Summary is the JSON document printed by --metrics.
type Summary struct {
	Timing []TimingStats `json:"timing"`
	Cache  []CacheStats  `json:"cache"`
}

// Snapshot collects every metric with data.
func Snapshot() Summary {
	s := Summary{Timing: AllTimingStats(), Cache: []CacheStats{}}
	for _, c := range AllCacheMetrics() {
		st := c.Stats()
		if st.Hits+st.Misses > 0 {
			s.Cache = append(s.Cache, st)
		}
	}
	return s
}

// MarshalSummary renders the current snapshot as indented JSON.
func MarshalSummary() ([]byte, error) {
	return json.MarshalIndent(Snapshot(), "", "  ")
}

// Package stats provides concurrency-safe tallies and rate-limited warnings
// used to summarize batch runs.
package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Counter counts occurrences (and optionally accumulates a score) by category.
// It is safe for concurrent use; accumulation is commutative, so the final
// tallies do not depend on the order in which workers report.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int64
	scores map[string]float64
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{
		counts: make(map[string]int64),
		scores: make(map[string]float64),
	}
}

// Inc increments the count for key by one.
func (c *Counter) Inc(key string) {
	c.Add(key, 1)
}

// Add increments the count for key by n.
func (c *Counter) Add(key string, n int64) {
	c.mu.Lock()
	c.counts[key] += n
	c.mu.Unlock()
}

// AddScore increments the count for key and adds score to its running sum.
func (c *Counter) AddScore(key string, score float64) {
	c.mu.Lock()
	c.counts[key]++
	c.scores[key] += score
	c.mu.Unlock()
}

// Get returns the count for key (0 if never seen).
func (c *Counter) Get(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

// Score returns the accumulated score for key.
func (c *Counter) Score(key string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scores[key]
}

// Keys returns all categories in sorted order.
func (c *Counter) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Merge adds all counts and scores from other into c.
func (c *Counter) Merge(other *Counter) {
	if other == nil || other == c {
		return
	}
	other.mu.Lock()
	counts := make(map[string]int64, len(other.counts))
	for k, v := range other.counts {
		counts[k] = v
	}
	scores := make(map[string]float64, len(other.scores))
	for k, v := range other.scores {
		scores[k] = v
	}
	other.mu.Unlock()

	c.mu.Lock()
	for k, v := range counts {
		c.counts[k] += v
	}
	for k, v := range scores {
		c.scores[k] += v
	}
	c.mu.Unlock()
}

// Reset clears all tallies.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.counts = make(map[string]int64)
	c.scores = make(map[string]float64)
	c.mu.Unlock()
}

// Len returns the number of distinct categories.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// String renders one "key\tcount" line per category, sorted by key.
func (c *Counter) String() string {
	var sb strings.Builder
	for _, k := range c.Keys() {
		fmt.Fprintf(&sb, "%s\t%d\n", k, c.Get(k))
	}
	return sb.String()
}

// WriteScores writes "key\tcount\tscore\tmean" lines sorted by descending
// score, then key.
func (c *Counter) WriteScores(w io.Writer) error {
	keys := c.Keys()
	c.mu.Lock()
	sort.SliceStable(keys, func(i, j int) bool {
		si, sj := c.scores[keys[i]], c.scores[keys[j]]
		if si != sj {
			return si > sj
		}
		return keys[i] < keys[j]
	})
	type row struct {
		key   string
		count int64
		score float64
	}
	rows := make([]row, len(keys))
	for i, k := range keys {
		rows[i] = row{k, c.counts[k], c.scores[k]}
	}
	c.mu.Unlock()

	for _, r := range rows {
		mean := 0.0
		if r.count > 0 {
			mean = r.score / float64(r.count)
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\t%g\t%g\n", r.key, r.count, r.score, mean); err != nil {
			return err
		}
	}
	return nil
}

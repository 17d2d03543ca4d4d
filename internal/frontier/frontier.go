// Package frontier implements the Visit Cache component (spec.md §4.5)
// and the CrawlTask data type (spec.md §3).
//
// Responsibilities:
//   - Deduplicate URLs across the whole run
//   - Guarantee the compare-and-insert used to decide "may this URL be
//     enqueued" is atomic relative to concurrent callers (spec.md §5:
//     "Visit cache membership check and insertion must be atomic
//     relative to other enqueues")
//
// It knows nothing about fetching, extraction, delay, or the queue
// itself — those are the Probe Client, Link Extractor, Delay Cache and
// Work Queue's concerns respectively.
package frontier

import (
	"net/url"
	"sync"
)

// CrawlTask is the unit of work scheduled onto the Work Queue
// (spec.md §3).
type CrawlTask struct {
	URL      url.URL
	Crawl    bool
	Parent   *url.URL
	RootPath url.URL
}

// VisitCache is the set of URL strings that have been enqueued at
// least once during the current run (spec.md §4.5). Starting URLs must
// be pre-added before their tasks enter the queue.
type VisitCache struct {
	mu   sync.Mutex
	seen Set[string]
}

func NewVisitCache() *VisitCache {
	return &VisitCache{seen: NewSet[string]()}
}

// TryAdd atomically checks membership and inserts in one critical
// section, per spec.md §4.5: "A task is enqueued only if
// !contains(url), after which add(url) is called synchronously before
// enqueue." It returns true if key was newly added (the caller should
// enqueue), false if key was already present (the caller must not
// enqueue again).
func (v *VisitCache) TryAdd(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen.Contains(key) {
		return false
	}
	v.seen.Add(key)
	return true
}

func (v *VisitCache) Contains(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seen.Contains(key)
}

func (v *VisitCache) Size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seen.Size()
}

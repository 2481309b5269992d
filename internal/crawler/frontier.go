// -----------------------------------------------------------------------
// Frontier - ordered, deduplicated queue of pending URLs plus visited set
// -----------------------------------------------------------------------

package crawler

import (
	"container/list"
	"sync"
)

// Frontier holds the URLs discovered but not yet visited (FIFO, so the
// crawl proceeds breadth-first) and the set of URLs already claimed.
//
// All membership checks use normalized URLs as keys. Invariants: a URL
// never appears twice in the queue, and a visited URL is never re-queued.
type Frontier struct {
	mu         sync.Mutex
	queue      *list.List
	queued     map[string]struct{}
	visited    map[string]struct{}
	totalAdded int
	duplicates int
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	f := &Frontier{}
	f.reset()
	return f
}

func (f *Frontier) reset() {
	f.queue = list.New()
	f.queued = make(map[string]struct{})
	f.visited = make(map[string]struct{})
	f.totalAdded = 0
	f.duplicates = 0
}

// Reset returns the frontier to its empty state so a Crawler instance can
// be reused across crawl invocations without leaking prior state.
func (f *Frontier) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

// EnqueueIfNew inserts a normalized URL unless it is already queued or
// already visited. Returns whether insertion occurred.
func (f *Frontier) EnqueueIfNew(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, seen := f.visited[normalizedURL]; seen {
		f.duplicates++
		return false
	}
	if _, pending := f.queued[normalizedURL]; pending {
		f.duplicates++
		return false
	}

	f.queue.PushBack(normalizedURL)
	f.queued[normalizedURL] = struct{}{}
	f.totalAdded++
	return true
}

// Dequeue pops the next URL in FIFO order. The caller must mark the URL
// visited before attempting a fetch so a rediscovery while the fetch is
// in flight cannot re-queue it.
func (f *Frontier) Dequeue() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	elem := f.queue.Front()
	if elem == nil {
		return "", false
	}
	normalizedURL := f.queue.Remove(elem).(string)
	delete(f.queued, normalizedURL)
	return normalizedURL, true
}

// MarkVisited records that a URL has been claimed for processing.
// The visited set grows monotonically for the lifetime of a crawl.
func (f *Frontier) MarkVisited(normalizedURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[normalizedURL] = struct{}{}
}

// HasVisited reports whether a URL has already been claimed
func (f *Frontier) HasVisited(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, seen := f.visited[normalizedURL]
	return seen
}

// Len returns the number of URLs awaiting a visit
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// FrontierStats reports frontier counters for progress logging
type FrontierStats struct {
	Queued     int
	Visited    int
	TotalAdded int
	Duplicates int
}

// Stats returns a snapshot of the frontier counters
func (f *Frontier) Stats() FrontierStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FrontierStats{
		Queued:     f.queue.Len(),
		Visited:    len(f.visited),
		TotalAdded: f.totalAdded,
		Duplicates: f.duplicates,
	}
}

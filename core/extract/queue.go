package extract

import "github.com/gaurav-prasanna/postpipe/core"

// queue keeps descriptors in first-appearance order, deduplicated by source URL.
type queue struct {
	items []core.ImageDescriptor
	seen  map[string]bool
}

func newQueue() *queue {
	return &queue{seen: make(map[string]bool)}
}

// Add enqueues d unless its URL is empty or has been seen before.
func (q *queue) Add(d core.ImageDescriptor) bool {
	if d.SourceURL == "" || q.seen[d.SourceURL] {
		return false
	}
	q.seen[d.SourceURL] = true
	q.items = append(q.items, d)
	return true
}

// Has reports whether url has already been captured.
func (q *queue) Has(url string) bool {
	return q.seen[url]
}

// All returns every captured descriptor in insertion order.
func (q *queue) All() []core.ImageDescriptor {
	return q.items
}

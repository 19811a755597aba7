package providers

import "sync"

// URLDedup tracks media URLs already placed on a timeline so the same
// clip never appears twice in one job run. It is injected into the
// resolver rather than kept as package state, and reset at the start of
// every run.
type URLDedup struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func NewURLDedup() *URLDedup {
	return &URLDedup{used: make(map[string]struct{})}
}

// MarkUsed records a URL. Returns false if it was already present.
func (d *URLDedup) MarkUsed(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.used[url]; ok {
		return false
	}
	d.used[url] = struct{}{}
	return true
}

func (d *URLDedup) Seen(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.used[url]
	return ok
}

func (d *URLDedup) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.used = make(map[string]struct{})
}

func (d *URLDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.used)
}

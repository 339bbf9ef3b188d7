package whale

import "sync"

// Deduplicator suppresses events that were already alerted during the life of
// the process. The seen set only grows; it is reset by restarting.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator creates an empty deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// ShouldAlert reports whether ev has not been alerted yet and marks it as seen
// when it returns true. Check and insert happen under one lock.
func (d *Deduplicator) ShouldAlert(ev Event) bool {
	fp := ev.Fingerprint()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[fp]; ok {
		return false
	}
	d.seen[fp] = struct{}{}
	return true
}

// Seen reports whether a fingerprint was already alerted
func (d *Deduplicator) Seen(fp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[fp]
	return ok
}

// Len returns the number of alerted fingerprints
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

package domain

import "sync"

// RegionLatch is a write-once cell for the chained region id.
// Only the first non-empty Set wins.
type RegionLatch struct {
	mu  sync.Mutex
	id  string
	set bool
}

// Set stores id if nothing is stored yet. Empty ids are refused.
func (l *RegionLatch) Set(id string) bool {
	if id == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.set {
		return false
	}
	l.id = id
	l.set = true
	return true
}

// Get returns the stored id and whether one is set
func (l *RegionLatch) Get() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id, l.set
}

// IsSet reports whether a region has been latched
func (l *RegionLatch) IsSet() bool {
	_, ok := l.Get()
	return ok
}

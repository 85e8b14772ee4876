package match

import "sync"

// Locks gives each match a single writer. A match being run cannot be run
// again until the first run returns.
type Locks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocks returns an empty lock set.
func NewLocks() *Locks {
	return &Locks{held: make(map[string]struct{})}
}

// TryLock takes the lock for id, reporting false if it is already held.
func (l *Locks) TryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[id]; ok {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

// Unlock releases the lock for id.
func (l *Locks) Unlock(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}

// Held reports whether id is locked.
func (l *Locks) Held(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[id]
	return ok
}

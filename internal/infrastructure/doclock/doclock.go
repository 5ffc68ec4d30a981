// Package doclock provides per-document mutual exclusion so that two
// signature submissions for the same document cannot interleave between
// reading the already-signed set and committing the new one.
package doclock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out one exclusive lock per document id. Entries are
// reference counted and dropped once the last holder releases.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

// Acquire blocks until the document lock is held and returns the release
// function. Calling release more than once is a no-op.
func (r *Registry) Acquire(documentID string) func() {
	r.mu.Lock()
	e, ok := r.locks[documentID]
	if !ok {
		e = &entry{}
		r.locks[documentID] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			r.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(r.locks, documentID)
			}
			r.mu.Unlock()
		})
	}
}

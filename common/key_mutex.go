package common

import (
	"sync"
)

type keyMutexEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyMutex hands out one mutex per key. Mutexes are created on first use and dropped once
// nobody holds or waits on them, so the map only grows with the number of keys in use.
type KeyMutex[T comparable] struct {
	mu      sync.Mutex
	mutexes map[T]*keyMutexEntry
}

// Lock acquires a lock for the given key and returns a releaser function. Caller should call releaser after
// it is done with the lock.
func (m *KeyMutex[T]) Lock(key T) func() {
	m.mu.Lock()
	if m.mutexes == nil {
		m.mutexes = make(map[T]*keyMutexEntry)
	}
	e, ok := m.mutexes[key]
	if !ok {
		e = &keyMutexEntry{}
		m.mutexes[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.mutexes, key)
		}
		m.mu.Unlock()
	}
}

// Len returns the number of keys that are currently locked or waited on.
func (m *KeyMutex[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mutexes)
}

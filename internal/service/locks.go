package service

import (
	"sync"

	"github.com/google/uuid"
)

// eventLocks serializes load, engine and commit per event.
type eventLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*eventLock
}

type eventLock struct {
	mu   sync.Mutex
	refs int
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[uuid.UUID]*eventLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *eventLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &eventLock{}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *eventLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

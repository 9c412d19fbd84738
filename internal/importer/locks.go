package importer

import "sync"

// feedLocks serializes work per feed identity
type feedLocks struct {
	mu    sync.Mutex
	locks map[string]*feedLock
}

type feedLock struct {
	mu   sync.Mutex
	refs int
}

func newFeedLocks() *feedLocks {
	return &feedLocks{locks: make(map[string]*feedLock)}
}

// lock blocks until feedID is free and returns the matching unlock
func (l *feedLocks) lock(feedID string) func() {
	l.mu.Lock()
	fl, ok := l.locks[feedID]
	if !ok {
		fl = &feedLock{}
		l.locks[feedID] = fl
	}
	fl.refs++
	l.mu.Unlock()

	fl.mu.Lock()

	return func() {
		fl.mu.Unlock()

		l.mu.Lock()
		fl.refs--
		if fl.refs == 0 {
			delete(l.locks, feedID)
		}
		l.mu.Unlock()
	}
}

package agent

import "sync"

// sessionLocker hands out per-session RW locks and drops each entry when its
// last holder releases, so the table stays bounded by in-flight sessions
// rather than every session ID ever seen.
type sessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.RWMutex
	refs int
}

func newSessionLocker() *sessionLocker {
	return &sessionLocker{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocker) acquire(sessionID string) *sessionLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl := l.locks[sessionID]
	if sl == nil {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	return sl
}

func (l *sessionLocker) release(sessionID string, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
}

func (l *sessionLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

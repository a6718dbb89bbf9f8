package service

import "sync"

// sessionLocks serializes turns per session. Sequence allocation is a plain
// max+1 read, so two concurrent turns on the same session must never
// interleave between allocating and persisting.
//
// Entries are never evicted: a mutex must outlive its session so a turn on a
// reactivated session contends on the same lock, and removal would race with
// a goroutine that has fetched the mutex but not yet locked it. One idle
// mutex per session id seen by the process is the cost.
type sessionLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[int64]*sync.Mutex)}
}

func (l *sessionLocks) get(sessionID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.m[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.m[sessionID] = lock
	}
	return lock
}

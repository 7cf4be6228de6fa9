package services

import "sync"

// periodLocks hands out one mutex per user and month. Entries are dropped
// once nobody holds or waits for them.
type periodLocks struct {
	mu    sync.Mutex
	locks map[string]*periodLock
}

type periodLock struct {
	sync.Mutex
	refs int
}

func newPeriodLocks() *periodLocks {
	return &periodLocks{locks: make(map[string]*periodLock)}
}

// lock blocks until key is free and returns the matching unlock.
func (p *periodLocks) lock(key string) func() {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &periodLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

// refs reports how many callers hold or wait for key.
func (p *periodLocks) refs(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[key]; ok {
		return l.refs
	}
	return 0
}

func (p *periodLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

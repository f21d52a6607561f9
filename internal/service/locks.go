package service

import "sync"

// loanLocks serializes writers per loan inside this process. Entries are
// dropped once no goroutine holds or waits for them.
type loanLocks struct {
	mu    sync.Mutex
	locks map[string]*loanLock
}

type loanLock struct {
	mu   sync.Mutex
	refs int
}

func newLoanLocks() *loanLocks {
	return &loanLocks{locks: make(map[string]*loanLock)}
}

// lock blocks until the caller owns loanID and returns the release func.
func (l *loanLocks) lock(loanID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[loanID]
	if !ok {
		entry = &loanLock{}
		l.locks[loanID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, loanID)
		}
		l.mu.Unlock()
	}
}

func (l *loanLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

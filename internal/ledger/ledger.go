// Package ledger records which tool invocations a session has already applied.
package ledger

import "sync"

// Ledger admits each invocation id at most once. Entries live as long as the
// session that owns the ledger; there is no eviction.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Admit returns true the first time id is seen and false on every later call
func (l *Ledger) Admit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return false
	}
	l.seen[id] = struct{}{}
	return true
}

// Seen reports whether id was admitted before, without admitting it
func (l *Ledger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// Len returns the number of admitted ids
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

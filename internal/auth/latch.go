package auth

import "sync"

// codeLatch is a one-shot latch per authorization code. Codes are
// single-use at the provider, so a duplicate callback trigger (a
// refresh, a double navigation) must never re-post a consumed code.
// This is not a general deduplication cache: entries are never
// evicted because a given code only ever arrives in a short burst.
type codeLatch struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newCodeLatch() *codeLatch {
	return &codeLatch{seen: make(map[string]struct{})}
}

// tryAcquire reports whether the caller is the first to present code.
func (l *codeLatch) tryAcquire(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[code]; dup {
		return false
	}
	l.seen[code] = struct{}{}
	return true
}

package orchestrator

import (
	"sync"

	"dnsdbq/internal/transfer"
)

// ActiveTracker enforces the single-active-query invariant of §5's
// batch-verbose mode: exactly one Query at a time holds the "active" token;
// others park in the transfer engine's paused ring (FIFO) until the active
// Query finishes.
type ActiveTracker struct {
	eng *transfer.Engine

	mu     sync.Mutex
	active *Query
}

// NewActiveTracker returns a tracker that resumes parked groups on eng.
func NewActiveTracker(eng *transfer.Engine) *ActiveTracker {
	return &ActiveTracker{eng: eng}
}

// TryEnter reports whether q may proceed: true if q is already active, or
// if no query is active (in which case q becomes active).
func (t *ActiveTracker) TryEnter(q *Query) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		t.active = q
	}
	return t.active == q
}

// Release clears the active token if q holds it, then pops the next parked
// group so it can proceed.
func (t *ActiveTracker) Release(q *Query) {
	t.mu.Lock()
	if t.active == q {
		t.active = nil
	}
	t.mu.Unlock()
	t.eng.ResumeNext()
}

package ledger

import "time"

// DisableAtomicSettle is a test helper that makes the in-memory store's
// Settle path report ErrCommitUnavailable, simulating a deployment without
// the stored settle function.
func DisableAtomicSettle(s Store, disabled bool) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.noAtomic = disabled
	}
}

// SettleCalls is a test helper that reports how many times the in-memory
// store's atomic Settle path was attempted.
func SettleCalls(s Store) int {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		return mem.settleCalls
	}
	return 0
}

// BackdateEvent is a test helper that rewrites an event's creation time when
// using the in-memory store.
func BackdateEvent(s Store, id string, createdAt time.Time) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if ev, exists := mem.events[id]; exists {
			ev.CreatedAt = createdAt
		}
	}
}

package balance

// SeedBalance is a test helper that seeds a user's balance when using the in-memory store.
func SeedBalance(s Store, userID string, amount int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[userID] = amount
	}
}

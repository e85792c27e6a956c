package balance

import (
	"context"
	"fmt"
	"sync"
)

type inMemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewInMemory creates a concurrency-safe in-memory balance store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{balances: make(map[string]int64)}
}

func (s *inMemoryStore) Ensure(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[userID]; !exists {
		s.balances[userID] = 0
	}
	return nil
}

func (s *inMemoryStore) Balance(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, exists := s.balances[userID]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return bal, nil
}

func (s *inMemoryStore) ReserveAndDebit(_ context.Context, userID string, amount int64) (Movement, error) {
	if amount <= 0 {
		return Movement{}, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, exists := s.balances[userID]
	if !exists {
		return Movement{}, ErrAccountNotFound
	}
	if before < amount {
		return Movement{}, &InsufficientBalanceError{Available: before, Requested: amount}
	}

	after := before - amount
	s.balances[userID] = after
	return Movement{UserID: userID, Before: before, After: after}, nil
}

func (s *inMemoryStore) Credit(_ context.Context, userID string, amount int64) (Movement, error) {
	if amount <= 0 {
		return Movement{}, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, exists := s.balances[userID]
	if !exists {
		return Movement{}, ErrAccountNotFound
	}

	after := before + amount
	s.balances[userID] = after
	return Movement{UserID: userID, Before: before, After: after}, nil
}

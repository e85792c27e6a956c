package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository creates an in-memory repository useful for unit tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acc.UserID]; !exists {
		r.accounts[acc.UserID] = acc
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, userID string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, exists := r.accounts[userID]
	if !exists {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (r *memoryRepository) LinkWallet(_ context.Context, userID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, exists := r.accounts[userID]
	if !exists {
		return ErrNotFound
	}
	acc.WalletAddress = address
	acc.UpdatedAt = time.Now().UTC()
	r.accounts[userID] = acc
	return nil
}

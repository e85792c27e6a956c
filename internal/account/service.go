package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
	"github.com/solbet/custody/internal/solana"
)

// Service exposes account operations backed by the balance store and the
// ledger. Deposit credits arrive here from the external deposit watcher.
type Service struct {
	repo     Repository
	balances balance.Store
	events   ledger.Store
}

// NewService builds an account service instance.
func NewService(repo Repository, balances balance.Store, events ledger.Store) *Service {
	return &Service{repo: repo, balances: balances, events: events}
}

// Create provisions an account and its zero custodial balance.
func (s *Service) Create(ctx context.Context, userID string) (Account, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return Account{}, fmt.Errorf("invalid user id: %w", err)
	}

	acc := Account{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return Account{}, err
	}
	if err := s.balances.Ensure(ctx, userID); err != nil {
		return Account{}, err
	}
	return s.repo.Get(ctx, userID)
}

// Get retrieves account metadata.
func (s *Service) Get(ctx context.Context, userID string) (Account, error) {
	return s.repo.Get(ctx, userID)
}

// Balance returns the custodial balance in lamports.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	return s.balances.Balance(ctx, userID)
}

// LinkWallet validates and records the user's personal settlement address,
// the destination used by internal transfers.
func (s *Service) LinkWallet(ctx context.Context, userID, address string) error {
	if err := solana.ValidateAddress(address); err != nil {
		return err
	}
	return s.repo.LinkWallet(ctx, userID, address)
}

// Credit applies a confirmed external deposit to the custodial balance and
// appends a completed deposit event for the audit trail. The caller (the
// deposit watcher) has already verified that funds arrived on-chain.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, signature string) (balance.Movement, error) {
	if amount <= 0 {
		return balance.Movement{}, fmt.Errorf("amount must be positive")
	}

	m, err := s.balances.Credit(ctx, userID, amount)
	if err != nil {
		return balance.Movement{}, err
	}

	after := m.After
	_, err = s.events.Append(ctx, ledger.Event{
		UserID:       userID,
		Kind:         ledger.KindDeposit,
		Amount:       amount,
		Signature:    signature,
		Status:       ledger.StatusCompleted,
		BalanceAfter: &after,
	})
	if err != nil {
		// The credit stands; the missing audit row is an operator concern,
		// not a reason to claw back user funds.
		return m, fmt.Errorf("deposit credited but audit append failed: %w", err)
	}
	return m, nil
}

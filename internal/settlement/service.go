package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solbet/custody/internal/account"
	"github.com/solbet/custody/internal/alert"
	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
	"github.com/solbet/custody/internal/limits"
	"github.com/solbet/custody/internal/solana"
)

// Executor submits and confirms house-funded transfers on-chain.
type Executor interface {
	Execute(ctx context.Context, destination string, lamports uint64) (string, error)
}

// AccountDirectory resolves account metadata, in particular the linked
// wallet used as the internal-transfer destination.
type AccountDirectory interface {
	Get(ctx context.Context, userID string) (account.Account, error)
}

// Config bounds per-request amounts.
type Config struct {
	MinAmount       int64
	MaxSingleAmount int64
}

// Service is the settlement orchestrator: it sequences validation, limit
// check, balance reservation, on-chain execution, balance commit, and audit
// logging for withdrawals and internal transfers.
type Service struct {
	accounts   AccountDirectory
	balances   balance.Store
	events     ledger.Store
	limiter    *limits.Limiter
	executor   Executor
	committers []Committer
	alerts     alert.Notifier
	cfg        Config
	logger     *slog.Logger
}

// NewService wires the orchestrator. Committers are probed in order; the
// conventional pair is NewPrimaryCommitter then NewFallbackCommitter.
func NewService(
	accounts AccountDirectory,
	balances balance.Store,
	events ledger.Store,
	limiter *limits.Limiter,
	executor Executor,
	committers []Committer,
	alerts alert.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:   accounts,
		balances:   balances,
		events:     events,
		limiter:    limiter,
		executor:   executor,
		committers: committers,
		alerts:     alerts,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithdrawInput captures a withdrawal to an external wallet.
type WithdrawInput struct {
	UserID      string
	Amount      int64
	Destination string
}

// WithdrawResult reports the settled withdrawal.
type WithdrawResult struct {
	Signature  string
	NewBalance int64
	Limits     limits.Decision
}

// TransferInput captures an internal transfer to the user's linked wallet.
type TransferInput struct {
	UserID string
	Amount int64
}

// TransferResult reports the settled internal transfer.
type TransferResult struct {
	Signature     string
	BalanceBefore int64
	BalanceAfter  int64
}

// Withdraw settles funds to an external destination address.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (WithdrawResult, error) {
	if err := s.checkAmount(input.Amount); err != nil {
		return WithdrawResult{}, err
	}
	if err := solana.ValidateAddress(input.Destination); err != nil {
		return WithdrawResult{}, err
	}

	decision, err := s.limiter.CheckDaily(ctx, input.UserID, ledger.KindWithdrawal, input.Amount)
	if err != nil {
		return WithdrawResult{}, err
	}

	m, signature, err := s.settle(ctx, input.UserID, ledger.KindWithdrawal, input.Destination, input.Amount)
	if err != nil {
		return WithdrawResult{}, err
	}

	return WithdrawResult{
		Signature:  signature,
		NewBalance: m.After,
		Limits:     consume(decision, input.Amount),
	}, nil
}

// TransferInternal settles funds to the user's registered on-chain wallet.
func (s *Service) TransferInternal(ctx context.Context, input TransferInput) (TransferResult, error) {
	if err := s.checkAmount(input.Amount); err != nil {
		return TransferResult{}, err
	}

	acc, err := s.accounts.Get(ctx, input.UserID)
	if err != nil {
		return TransferResult{}, err
	}
	if acc.WalletAddress == "" {
		return TransferResult{}, ErrNoLinkedWallet
	}
	if err := solana.ValidateAddress(acc.WalletAddress); err != nil {
		return TransferResult{}, err
	}

	if _, err := s.limiter.CheckDaily(ctx, input.UserID, ledger.KindInternalTransfer, input.Amount); err != nil {
		return TransferResult{}, err
	}

	m, signature, err := s.settle(ctx, input.UserID, ledger.KindInternalTransfer, acc.WalletAddress, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Signature: signature, BalanceBefore: m.Before, BalanceAfter: m.After}, nil
}

func (s *Service) checkAmount(amount int64) error {
	if amount < s.cfg.MinAmount || amount > s.cfg.MaxSingleAmount {
		return &AmountOutOfRangeError{Amount: amount, Min: s.cfg.MinAmount, Max: s.cfg.MaxSingleAmount}
	}
	return nil
}

// settle runs the shared reserve → execute → commit sequence. The
// reservation is the irrevocable point: past it, funds are spent from the
// user's perspective and every failure path must either roll the
// reservation back or leave a pending event plus an operator alert.
func (s *Service) settle(ctx context.Context, userID, kind, destination string, amount int64) (balance.Movement, string, error) {
	reserved, err := s.balances.ReserveAndDebit(ctx, userID, amount)
	if err != nil {
		return balance.Movement{}, "", err
	}

	ev, err := s.events.Append(ctx, ledger.Event{
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Destination: destination,
		Status:      ledger.StatusPending,
	})
	if err != nil {
		// No audit row, no blockchain call. Roll back and report retryable.
		s.rollback(ctx, userID, amount)
		return balance.Movement{}, "", fmt.Errorf("append ledger event: %w", err)
	}

	signature, err := s.executor.Execute(ctx, destination, uint64(amount))
	if err != nil {
		if errors.Is(err, solana.ErrConfirmationTimeout) {
			// The transaction may still confirm; keep the reservation and
			// the pending event, and hand the trail to the sweep.
			if signature != "" {
				if attachErr := s.events.AttachSignature(ctx, ev.ID, signature); attachErr != nil {
					s.logger.Error("attach signature failed", slog.String("event_id", ev.ID), slog.Any("error", attachErr))
				}
			}
			s.alerts.Critical(ctx, alert.Event{
				Kind:      alert.KindConfirmationPending,
				UserID:    userID,
				Signature: signature,
				Amount:    amount,
				Body:      "confirmation timed out; event parked for reconciliation",
			})
			return balance.Movement{}, signature, &ReconciliationPendingError{Signature: signature}
		}

		// Pre-confirmation failure: nothing moved on-chain. Roll back.
		s.rollback(ctx, userID, amount)
		if mErr := s.events.MarkFailed(ctx, ev.ID); mErr != nil {
			s.logger.Error("mark failed", slog.String("event_id", ev.ID), slog.Any("error", mErr))
		}
		return balance.Movement{}, "", err
	}

	if attachErr := s.events.AttachSignature(ctx, ev.ID, signature); attachErr != nil && !errors.Is(attachErr, ledger.ErrNotPending) {
		s.logger.Error("attach signature failed", slog.String("event_id", ev.ID), slog.Any("error", attachErr))
	}

	if _, err := s.commit(ctx, ev, signature); err != nil {
		// Funds moved on-chain but the debit record is unresolved. Never
		// silently dropped: the event stays pending and operators are paged.
		s.alerts.Critical(ctx, alert.Event{
			Kind:      alert.KindReconciliationRequired,
			UserID:    userID,
			Signature: signature,
			Amount:    amount,
			Body:      "confirmed transfer without a committed debit record",
		})
		return balance.Movement{}, signature, &ReconciliationPendingError{Signature: signature}
	}

	s.logger.Info("settlement completed",
		slog.String("user_id", userID),
		slog.String("kind", kind),
		slog.Int64("amount", amount),
		slog.String("signature", signature),
		slog.Int64("balance_after", reserved.After))

	return reserved, signature, nil
}

func (s *Service) commit(ctx context.Context, ev ledger.Event, signature string) (balance.Movement, error) {
	var lastErr error = ledger.ErrCommitUnavailable
	for _, committer := range s.committers {
		m, err := committer.Commit(ctx, ev, signature)
		if err == nil {
			return m, nil
		}
		lastErr = err
	}
	return balance.Movement{}, lastErr
}

func (s *Service) rollback(ctx context.Context, userID string, amount int64) {
	if _, err := s.balances.Credit(ctx, userID, amount); err != nil {
		// A failed rollback strands user funds; this must page someone.
		s.alerts.Critical(ctx, alert.Event{
			Kind:   alert.KindReconciliationRequired,
			UserID: userID,
			Amount: amount,
			Body:   "reservation rollback failed",
		})
	}
}

func consume(d limits.Decision, amount int64) limits.Decision {
	if d.Limit <= 0 {
		return d
	}
	d.Used += amount
	d.Remaining -= amount
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d
}

package settlement

import (
	"context"
	"errors"

	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
)

// Committer durably records a confirmed on-chain transfer against its
// pending ledger event. The orchestrator probes committers in order and is
// unaware of which one ran: a committer that cannot serve this deployment
// reports ledger.ErrCommitUnavailable and the next tier takes over.
type Committer interface {
	Commit(ctx context.Context, ev ledger.Event, signature string) (balance.Movement, error)
}

// PrimaryCommitter records the commit through the event store's
// single-statement atomic settle path.
type PrimaryCommitter struct {
	events   ledger.Store
	balances balance.Store
}

// NewPrimaryCommitter builds the first-tier committer.
func NewPrimaryCommitter(events ledger.Store, balances balance.Store) *PrimaryCommitter {
	return &PrimaryCommitter{events: events, balances: balances}
}

// Commit snapshots the post-debit balance and settles the event atomically.
func (c *PrimaryCommitter) Commit(ctx context.Context, ev ledger.Event, signature string) (balance.Movement, error) {
	after, err := c.balances.Balance(ctx, ev.UserID)
	if err != nil {
		// Without a balance snapshot the atomic path cannot run; let the
		// fallback try with its own read.
		return balance.Movement{}, ledger.ErrCommitUnavailable
	}

	err = c.events.Settle(ctx, ev.ID, signature, after)
	if errors.Is(err, ledger.ErrNotPending) {
		return c.recorded(ctx, ev, signature)
	}
	if err != nil {
		return balance.Movement{}, err
	}
	return balance.Movement{UserID: ev.UserID, Before: after + ev.Amount, After: after}, nil
}

func (c *PrimaryCommitter) recorded(ctx context.Context, ev ledger.Event, signature string) (balance.Movement, error) {
	existing, err := c.events.FindBySignature(ctx, signature)
	if err != nil || existing.Status != ledger.StatusCompleted {
		return balance.Movement{}, ledger.ErrNotPending
	}
	return movementFromEvent(existing), nil
}

// FallbackCommitter is the reconciliation fallback: a more primitive commit
// path used when the atomic one is unavailable. It is idempotent on the
// on-chain signature, so a lost success response from the primary path can
// never produce a second debit record.
type FallbackCommitter struct {
	events   ledger.Store
	balances balance.Store
}

// NewFallbackCommitter builds the reconciliation-tier committer.
func NewFallbackCommitter(events ledger.Store, balances balance.Store) *FallbackCommitter {
	return &FallbackCommitter{events: events, balances: balances}
}

// Commit re-reads the balance and completes the event only if no event with
// this signature already completed.
func (c *FallbackCommitter) Commit(ctx context.Context, ev ledger.Event, signature string) (balance.Movement, error) {
	if existing, err := c.events.FindBySignature(ctx, signature); err == nil && existing.Status == ledger.StatusCompleted {
		return movementFromEvent(existing), nil
	}

	after, err := c.balances.Balance(ctx, ev.UserID)
	if err != nil {
		return balance.Movement{}, err
	}

	err = c.events.SettleDirect(ctx, ev.ID, signature, after)
	if errors.Is(err, ledger.ErrNotPending) {
		// Raced with another committer; whatever landed is authoritative.
		if existing, ferr := c.events.FindBySignature(ctx, signature); ferr == nil && existing.Status == ledger.StatusCompleted {
			return movementFromEvent(existing), nil
		}
		return balance.Movement{}, err
	}
	if err != nil {
		return balance.Movement{}, err
	}
	return balance.Movement{UserID: ev.UserID, Before: after + ev.Amount, After: after}, nil
}

func movementFromEvent(ev ledger.Event) balance.Movement {
	var after int64
	if ev.BalanceAfter != nil {
		after = *ev.BalanceAfter
	}
	return balance.Movement{UserID: ev.UserID, Before: after + ev.Amount, After: after}
}

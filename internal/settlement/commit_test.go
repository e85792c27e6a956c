package settlement

import (
	"context"
	"testing"

	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
)

func pendingEvent(t *testing.T, events ledger.Store, userID string, amount int64) ledger.Event {
	t.Helper()
	ev, err := events.Append(context.Background(), ledger.Event{
		UserID: userID,
		Kind:   ledger.KindWithdrawal,
		Amount: amount,
		Status: ledger.StatusPending,
	})
	if err != nil {
		t.Fatalf("append pending event: %v", err)
	}
	return ev
}

func TestPrimaryCommitterSettles(t *testing.T) {
	events := ledger.NewInMemory()
	balances := balance.NewInMemory()
	balance.SeedBalance(balances, "alice", 700_000) // post-debit balance

	ev := pendingEvent(t, events, "alice", 300_000)
	committer := NewPrimaryCommitter(events, balances)

	m, err := committer.Commit(context.Background(), ev, "sig-1")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if m.Before != 1_000_000 || m.After != 700_000 {
		t.Fatalf("movement = %+v, want 1000000 -> 700000", m)
	}

	stored, err := events.FindBySignature(context.Background(), "sig-1")
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if stored.Status != ledger.StatusCompleted {
		t.Fatalf("status = %q, want completed", stored.Status)
	}
}

func TestPrimaryCommitterReportsUnavailable(t *testing.T) {
	events := ledger.NewInMemory()
	balances := balance.NewInMemory()
	balance.SeedBalance(balances, "bob", 500_000)
	ledger.DisableAtomicSettle(events, true)

	ev := pendingEvent(t, events, "bob", 100_000)
	committer := NewPrimaryCommitter(events, balances)

	if _, err := committer.Commit(context.Background(), ev, "sig-2"); err != ledger.ErrCommitUnavailable {
		t.Fatalf("error = %v, want ErrCommitUnavailable", err)
	}

	pending, _ := events.ListPendingBefore(context.Background(), futureCutoff())
	if len(pending) != 1 {
		t.Fatalf("pending events = %d, event must stay untouched", len(pending))
	}
}

func TestFallbackCommitterIdempotentOnSignature(t *testing.T) {
	events := ledger.NewInMemory()
	balances := balance.NewInMemory()
	balance.SeedBalance(balances, "carol", 900_000)

	ev := pendingEvent(t, events, "carol", 100_000)
	committer := NewFallbackCommitter(events, balances)

	first, err := committer.Commit(context.Background(), ev, "sig-3")
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	if first.After != 900_000 {
		t.Fatalf("first movement after = %d, want 900000", first.After)
	}

	// Replaying the same signature must be a no-op that reports the
	// originally recorded movement, even if the balance moved meanwhile.
	if _, err := balances.Credit(context.Background(), "carol", 50_000); err != nil {
		t.Fatalf("credit: %v", err)
	}
	second, err := committer.Commit(context.Background(), ev, "sig-3")
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if second.After != 900_000 {
		t.Fatalf("replay movement after = %d, want recorded 900000", second.After)
	}

	bal, _ := balances.Balance(context.Background(), "carol")
	if bal != 950_000 {
		t.Fatalf("balance = %d, replay must not touch balances", bal)
	}
}

func TestCommitterChainFallsBack(t *testing.T) {
	events := ledger.NewInMemory()
	balances := balance.NewInMemory()
	balance.SeedBalance(balances, "dave", 400_000)
	ledger.DisableAtomicSettle(events, true)

	ev := pendingEvent(t, events, "dave", 200_000)
	chain := []Committer{
		NewPrimaryCommitter(events, balances),
		NewFallbackCommitter(events, balances),
	}

	var committed bool
	for _, c := range chain {
		if _, err := c.Commit(context.Background(), ev, "sig-4"); err == nil {
			committed = true
			break
		}
	}
	if !committed {
		t.Fatal("no committer in the chain succeeded")
	}

	stored, err := events.FindBySignature(context.Background(), "sig-4")
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if stored.Status != ledger.StatusCompleted {
		t.Fatalf("status = %q, want completed", stored.Status)
	}
	if got := ledger.SettleCalls(events); got != 1 {
		t.Fatalf("atomic settle attempts = %d, want exactly 1", got)
	}
}

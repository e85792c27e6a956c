package settlement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/solbet/custody/internal/alert"
	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
	"github.com/solbet/custody/internal/solana"
)

func futureCutoff() time.Time {
	return time.Now().UTC().Add(time.Hour)
}

type stubStatusChecker struct {
	statuses map[string]solana.Confirmation
}

func (c *stubStatusChecker) ConfirmationStatus(_ context.Context, signature string) (solana.Confirmation, error) {
	return c.statuses[signature], nil
}

type sweepFixture struct {
	sweeper  *Sweeper
	events   ledger.Store
	balances balance.Store
	status   *stubStatusChecker
	alerts   *alertRecorder
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := ledger.NewInMemory()
	balances := balance.NewInMemory()
	status := &stubStatusChecker{statuses: make(map[string]solana.Confirmation)}
	alerts := &alertRecorder{}

	committers := []Committer{
		NewPrimaryCommitter(events, balances),
		NewFallbackCommitter(events, balances),
	}

	return &sweepFixture{
		sweeper:  NewSweeper(events, balances, status, committers, alerts, time.Minute, time.Minute, logger),
		events:   events,
		balances: balances,
		status:   status,
		alerts:   alerts,
	}
}

func (f *sweepFixture) stalePending(t *testing.T, userID, signature string, amount int64) ledger.Event {
	t.Helper()
	ev, err := f.events.Append(context.Background(), ledger.Event{
		UserID:    userID,
		Kind:      ledger.KindWithdrawal,
		Amount:    amount,
		Signature: signature,
		Status:    ledger.StatusPending,
	})
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
	ledger.BackdateEvent(f.events, ev.ID, time.Now().UTC().Add(-time.Hour))
	return ev
}

func TestSweepCommitsLateConfirmation(t *testing.T) {
	f := newSweepFixture(t)
	balance.SeedBalance(f.balances, "alice", 800_000) // reservation already applied
	f.stalePending(t, "alice", "sig-late", 200_000)
	f.status.statuses["sig-late"] = solana.ConfirmationConfirmed

	f.sweeper.SweepOnce(context.Background())

	ev, err := f.events.FindBySignature(context.Background(), "sig-late")
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if ev.Status != ledger.StatusCompleted {
		t.Fatalf("status = %q, want completed", ev.Status)
	}
	if ev.BalanceAfter == nil || *ev.BalanceAfter != 800_000 {
		t.Fatalf("balance_after = %v, want 800000", ev.BalanceAfter)
	}
	if len(f.alerts.kinds()) != 0 {
		t.Fatalf("alerts = %v, want none", f.alerts.kinds())
	}
}

func TestSweepRollsBackOnChainFailure(t *testing.T) {
	f := newSweepFixture(t)
	balance.SeedBalance(f.balances, "bob", 800_000)
	f.stalePending(t, "bob", "sig-dead", 200_000)
	f.status.statuses["sig-dead"] = solana.ConfirmationFailed

	f.sweeper.SweepOnce(context.Background())

	ev, err := f.events.FindBySignature(context.Background(), "sig-dead")
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if ev.Status != ledger.StatusFailed {
		t.Fatalf("status = %q, want failed", ev.Status)
	}

	bal, _ := f.balances.Balance(context.Background(), "bob")
	if bal != 1_000_000 {
		t.Fatalf("balance = %d, want reservation returned at 1000000", bal)
	}
}

func TestSweepAlertsOnUnknownStatus(t *testing.T) {
	f := newSweepFixture(t)
	balance.SeedBalance(f.balances, "carol", 800_000)
	f.stalePending(t, "carol", "sig-lost", 200_000)

	f.sweeper.SweepOnce(context.Background())

	kinds := f.alerts.kinds()
	if len(kinds) != 1 || kinds[0] != alert.KindSweepUnresolved {
		t.Fatalf("alerts = %v, want one sweep_unresolved", kinds)
	}

	// Unknown means the sweep must not guess: no commit, no rollback.
	ev, _ := f.events.FindBySignature(context.Background(), "sig-lost")
	if ev.Status != ledger.StatusPending {
		t.Fatalf("status = %q, want still pending", ev.Status)
	}
	bal, _ := f.balances.Balance(context.Background(), "carol")
	if bal != 800_000 {
		t.Fatalf("balance = %d, must stay reserved at 800000", bal)
	}
}

func TestSweepAlertsOnMissingSignature(t *testing.T) {
	f := newSweepFixture(t)
	balance.SeedBalance(f.balances, "dave", 800_000)
	f.stalePending(t, "dave", "", 200_000)

	f.sweeper.SweepOnce(context.Background())

	kinds := f.alerts.kinds()
	if len(kinds) != 1 || kinds[0] != alert.KindSweepUnresolved {
		t.Fatalf("alerts = %v, want one sweep_unresolved", kinds)
	}
}

func TestSweepIgnoresFreshPending(t *testing.T) {
	f := newSweepFixture(t)
	balance.SeedBalance(f.balances, "eve", 800_000)
	if _, err := f.events.Append(context.Background(), ledger.Event{
		UserID:    "eve",
		Kind:      ledger.KindWithdrawal,
		Amount:    200_000,
		Signature: "sig-fresh",
		Status:    ledger.StatusPending,
	}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	f.status.statuses["sig-fresh"] = solana.ConfirmationConfirmed

	f.sweeper.SweepOnce(context.Background())

	ev, _ := f.events.FindBySignature(context.Background(), "sig-fresh")
	if ev.Status != ledger.StatusPending {
		t.Fatalf("fresh pending event touched: status = %q", ev.Status)
	}
}

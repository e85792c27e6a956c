package account

import (
	"context"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"

	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
	"github.com/solbet/custody/internal/solana"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), balance.NewInMemory(), ledger.NewInMemory())
}

func TestServiceCreateAndBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	userID := uuid.NewString()
	acc, err := svc.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.UserID != userID {
		t.Fatalf("unexpected account: %+v", acc)
	}

	bal, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 0 {
		t.Fatalf("new account should start at zero, got %d", bal)
	}

	if _, err := svc.Create(ctx, "not-a-uuid"); err == nil {
		t.Fatal("expected invalid user id to be rejected")
	}
}

func TestServiceLinkWallet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	userID := uuid.NewString()
	if _, err := svc.Create(ctx, userID); err != nil {
		t.Fatalf("create: %v", err)
	}

	address := types.NewAccount().PublicKey.ToBase58()
	if err := svc.LinkWallet(ctx, userID, address); err != nil {
		t.Fatalf("link wallet: %v", err)
	}

	acc, _ := svc.Get(ctx, userID)
	if acc.WalletAddress != address {
		t.Fatalf("wallet not linked: %+v", acc)
	}

	if err := svc.LinkWallet(ctx, userID, "bogus"); !errors.Is(err, solana.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestServiceCreditAppendsAudit(t *testing.T) {
	ctx := context.Background()
	events := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), balance.NewInMemory(), events)

	userID := uuid.NewString()
	if _, err := svc.Create(ctx, userID); err != nil {
		t.Fatalf("create: %v", err)
	}

	m, err := svc.Credit(ctx, userID, 2_000_000, "deposit-sig")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if m.Before != 0 || m.After != 2_000_000 {
		t.Fatalf("unexpected movement: %+v", m)
	}

	ev, err := events.FindBySignature(ctx, "deposit-sig")
	if err != nil {
		t.Fatalf("audit row missing: %v", err)
	}
	if ev.Kind != ledger.KindDeposit || ev.Status != ledger.StatusCompleted || ev.Amount != 2_000_000 {
		t.Fatalf("unexpected audit row: %+v", ev)
	}

	if _, err := svc.Credit(ctx, userID, 0, "sig"); err == nil {
		t.Fatal("expected non-positive amount to be rejected")
	}
}

package solana

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/solbet/custody/internal/logging"
)

// testBlockhash must stay a well-formed base58 string: transaction building
// decodes it, so a bad digit would fail serialization before submission.
var testBlockhash = types.NewAccount().PublicKey.ToBase58()

type fakeRPC struct {
	mu sync.Mutex

	houseBalance   uint64
	balanceErr     error
	blockhashErr   error
	fee            uint64
	submitFailures int
	submitErr      error
	submitted      int
	signature      string
	statusAfter    int // status polls before the signature reports confirmed
	statusPolls    int
	onChainErr     any
}

func (f *fakeRPC) GetLatestBlockhash(context.Context) (rpc.GetLatestBlockhashValue, error) {
	if f.blockhashErr != nil {
		return rpc.GetLatestBlockhashValue{}, f.blockhashErr
	}
	return rpc.GetLatestBlockhashValue{Blockhash: testBlockhash}, nil
}

func (f *fakeRPC) GetBalance(context.Context, string) (uint64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.houseBalance, nil
}

func (f *fakeRPC) GetFeeForMessage(context.Context, types.Message) (*uint64, error) {
	fee := f.fee
	return &fee, nil
}

func (f *fakeRPC) SendTransaction(context.Context, types.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted++
	if f.submitted <= f.submitFailures {
		if f.submitErr != nil {
			return "", f.submitErr
		}
		return "", errors.New("node unavailable")
	}
	return f.signature, nil
}

func (f *fakeRPC) GetSignatureStatus(context.Context, string) (*rpc.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusPolls++
	if f.onChainErr != nil {
		return &rpc.SignatureStatus{Err: f.onChainErr}, nil
	}
	if f.statusPolls <= f.statusAfter {
		return nil, nil
	}
	confirmed := rpc.CommitmentConfirmed
	return &rpc.SignatureStatus{ConfirmationStatus: &confirmed}, nil
}

func newTestExecutor(f *fakeRPC, cfg ExecutorConfig) *Executor {
	house := NewEphemeralHouseWallet(1_000_000_000)
	e := NewExecutor(f, house, cfg, nil, logging.Discard())
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func destination() string {
	return types.NewAccount().PublicKey.ToBase58()
}

func TestBlockhashFixtureIsWellFormed(t *testing.T) {
	if err := ValidateAddress(testBlockhash); err != nil {
		t.Fatalf("blockhash fixture must decode as base58: %v", err)
	}
}

func TestExecute_Succeeds(t *testing.T) {
	f := &fakeRPC{houseBalance: 10_000_000_000, fee: 5_000, signature: "sig-ok"}
	e := newTestExecutor(f, ExecutorConfig{SubmitRetries: 3})

	sig, err := e.Execute(context.Background(), destination(), 1_500_000)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if sig != "sig-ok" {
		t.Fatalf("unexpected signature: %s", sig)
	}
}

func TestExecute_RejectsInvalidDestination(t *testing.T) {
	f := &fakeRPC{houseBalance: 10_000_000_000, signature: "sig"}
	e := newTestExecutor(f, ExecutorConfig{})

	if _, err := e.Execute(context.Background(), "not-an-address", 1); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if f.submitted != 0 {
		t.Fatal("invalid destination must never reach submission")
	}
}

func TestExecute_HouseWalletLow(t *testing.T) {
	// balance < amount + fee + reserve
	f := &fakeRPC{houseBalance: 1_000_500_000, fee: 5_000, signature: "sig"}
	e := newTestExecutor(f, ExecutorConfig{})

	_, err := e.Execute(context.Background(), destination(), 600_000)
	if !errors.Is(err, ErrHouseWalletLow) {
		t.Fatalf("expected ErrHouseWalletLow, got %v", err)
	}
	if f.submitted != 0 {
		t.Fatal("reserve breach must abort before submission")
	}
}

func TestExecute_RetriesSubmissionThenSucceeds(t *testing.T) {
	f := &fakeRPC{houseBalance: 10_000_000_000, signature: "sig-retry", submitFailures: 2}
	e := newTestExecutor(f, ExecutorConfig{SubmitRetries: 3})

	sig, err := e.Execute(context.Background(), destination(), 1_000_000)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if sig != "sig-retry" {
		t.Fatalf("unexpected signature: %s", sig)
	}
	if f.submitted != 3 {
		t.Fatalf("expected 3 submission attempts, got %d", f.submitted)
	}
}

func TestExecute_ExhaustsRetries(t *testing.T) {
	f := &fakeRPC{houseBalance: 10_000_000_000, signature: "sig", submitFailures: 10}
	e := newTestExecutor(f, ExecutorConfig{SubmitRetries: 3})

	_, err := e.Execute(context.Background(), destination(), 1_000_000)
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if f.submitted != 4 {
		t.Fatalf("expected initial attempt plus 3 retries, got %d", f.submitted)
	}
}

func TestExecute_OnChainErrorFails(t *testing.T) {
	f := &fakeRPC{houseBalance: 10_000_000_000, signature: "sig", onChainErr: map[string]any{"InstructionError": []any{}}}
	e := newTestExecutor(f, ExecutorConfig{})

	if _, err := e.Execute(context.Background(), destination(), 1_000_000); !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed for on-chain error, got %v", err)
	}
}

func TestExecute_ConfirmationTimeoutKeepsSignature(t *testing.T) {
	f := &fakeRPC{houseBalance: 10_000_000_000, signature: "sig-slow", statusAfter: 1_000_000}
	e := newTestExecutor(f, ExecutorConfig{ConfirmationTimeout: 10 * time.Millisecond, PollInterval: time.Millisecond})
	e.sleep = sleepCtx

	sig, err := e.Execute(context.Background(), destination(), 1_000_000)
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
	if sig != "sig-slow" {
		t.Fatalf("timeout must surface the submitted signature, got %q", sig)
	}
}

func TestConfirmationStatus(t *testing.T) {
	f := &fakeRPC{statusAfter: 1}
	e := newTestExecutor(f, ExecutorConfig{})

	status, err := e.ConfirmationStatus(context.Background(), "sig")
	if err != nil || status != ConfirmationUnknown {
		t.Fatalf("expected unknown while unprocessed, got %v %v", status, err)
	}

	f.statusAfter = 0
	f.statusPolls = 0
	status, err = e.ConfirmationStatus(context.Background(), "sig")
	if err != nil || status != ConfirmationConfirmed {
		t.Fatalf("expected confirmed, got %v %v", status, err)
	}

	f.onChainErr = "InstructionError"
	status, err = e.ConfirmationStatus(context.Background(), "sig")
	if err != nil || status != ConfirmationFailed {
		t.Fatalf("expected failed, got %v %v", status, err)
	}
}

package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

var (
	// ErrHouseWalletLow occurs when the house wallet cannot fund the
	// transfer without dipping below its reserve.
	ErrHouseWalletLow = errors.New("house wallet below reserve")

	// ErrExecutionFailed occurs when submission exhausts its retries or the
	// network reports an on-chain error for the transaction.
	ErrExecutionFailed = errors.New("transaction execution failed")

	// ErrConfirmationTimeout occurs when a submitted transaction is not
	// confirmed within the bounded polling window. The transaction may
	// still confirm later, so callers must not treat this as a clean
	// failure.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

// fallbackFeeEstimate is used when the RPC fee query is unavailable.
const fallbackFeeEstimate = uint64(5_000)

// Confirmation is the sweep-visible state of a submitted signature.
type Confirmation int

const (
	// ConfirmationUnknown means the network has not (yet) confirmed the signature.
	ConfirmationUnknown Confirmation = iota
	// ConfirmationConfirmed means the signature confirmed without error.
	ConfirmationConfirmed
	// ConfirmationFailed means the signature landed with an on-chain error.
	ConfirmationFailed
)

// RPC is the slice of the Solana JSON-RPC surface the executor needs. The
// blocto client satisfies it; tests substitute a fake.
type RPC interface {
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	GetBalance(ctx context.Context, base58Addr string) (uint64, error)
	GetFeeForMessage(ctx context.Context, message types.Message) (*uint64, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
}

// NewRPCClient dials the given Solana RPC endpoint.
func NewRPCClient(endpoint string) RPC {
	return client.NewClient(endpoint)
}

// SnapshotRecorder receives the house wallet's freshly read on-chain balance
// so operations can alert on it. Recording is best effort.
type SnapshotRecorder interface {
	RecordHouseBalance(ctx context.Context, lamports uint64)
}

// ExecutorConfig bounds the executor's network interactions.
type ExecutorConfig struct {
	SubmitRetries       int
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
}

// Executor builds, signs, submits, and confirms transfers funded by the
// house wallet. It performs no balance-store mutation; it is a pure
// side-effecting adapter to the network so its failure modes can be tested
// independently of ledger bookkeeping.
type Executor struct {
	rpc       RPC
	house     *HouseWallet
	cfg       ExecutorConfig
	snapshots SnapshotRecorder
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewExecutor wires an executor around the given RPC client and house wallet.
func NewExecutor(rpcClient RPC, house *HouseWallet, cfg ExecutorConfig, snapshots SnapshotRecorder, logger *slog.Logger) *Executor {
	if cfg.SubmitRetries < 0 {
		cfg.SubmitRetries = 0
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Executor{rpc: rpcClient, house: house, cfg: cfg, snapshots: snapshots, logger: logger, sleep: sleepCtx}
}

// Execute transfers lamports from the house wallet to the destination and
// returns the signature once the network confirms it without error. On
// ErrConfirmationTimeout the returned signature is still populated so the
// caller can reconcile later.
func (e *Executor) Execute(ctx context.Context, destination string, lamports uint64) (string, error) {
	if err := ValidateAddress(destination); err != nil {
		return "", err
	}

	// The blockhash and house balance are read freshly for every execution:
	// the reserve check is the safeguard that keeps many concurrent
	// settlements from collectively overdrawing the shared wallet.
	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: fetch blockhash: %v", ErrExecutionFailed, err)
	}

	houseBalance, err := e.rpc.GetBalance(ctx, e.house.Address())
	if err != nil {
		return "", fmt.Errorf("%w: fetch house balance: %v", ErrExecutionFailed, err)
	}
	if e.snapshots != nil {
		e.snapshots.RecordHouseBalance(ctx, houseBalance)
	}

	message := types.NewMessage(types.NewMessageParam{
		FeePayer:        e.house.account.PublicKey,
		RecentBlockhash: blockhash.Blockhash,
		Instructions: []types.Instruction{
			system.Transfer(system.TransferParam{
				From:   e.house.account.PublicKey,
				To:     common.PublicKeyFromString(destination),
				Amount: lamports,
			}),
		},
	})

	fee := fallbackFeeEstimate
	if estimated, feeErr := e.rpc.GetFeeForMessage(ctx, message); feeErr == nil && estimated != nil {
		fee = *estimated
	}

	if houseBalance < lamports+fee+e.house.Reserve() {
		e.logger.Error("house wallet below reserve",
			slog.Uint64("balance", houseBalance),
			slog.Uint64("requested", lamports),
			slog.Uint64("fee", fee),
			slog.Uint64("reserve", e.house.Reserve()))
		return "", ErrHouseWalletLow
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: message,
		Signers: []types.Account{e.house.account},
	})
	if err != nil {
		return "", fmt.Errorf("%w: build transaction: %v", ErrExecutionFailed, err)
	}

	signature, err := e.submit(ctx, tx)
	if err != nil {
		return "", err
	}

	return e.awaitConfirmation(ctx, signature)
}

// submit sends the transaction, retrying with linear backoff (1s, 2s, 3s).
func (e *Executor) submit(ctx context.Context, tx types.Transaction) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.SubmitRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
			}
		}
		signature, err := e.rpc.SendTransaction(ctx, tx)
		if err == nil {
			return signature, nil
		}
		lastErr = err
		e.logger.Warn("transaction submission failed",
			slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("%w: submit: %v", ErrExecutionFailed, lastErr)
}

func (e *Executor) awaitConfirmation(ctx context.Context, signature string) (string, error) {
	deadline := time.Now().Add(e.cfg.ConfirmationTimeout)
	for {
		status, err := e.ConfirmationStatus(ctx, signature)
		if err == nil {
			switch status {
			case ConfirmationConfirmed:
				return signature, nil
			case ConfirmationFailed:
				// An on-chain error is treated identically to a submission failure.
				return "", fmt.Errorf("%w: transaction errored on-chain", ErrExecutionFailed)
			}
		} else {
			e.logger.Warn("signature status query failed",
				slog.String("signature", signature), slog.Any("error", err))
		}

		if time.Now().After(deadline) {
			return signature, ErrConfirmationTimeout
		}
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return signature, ErrConfirmationTimeout
		}
	}
}

// ConfirmationStatus reports the network's view of a submitted signature.
// The sweep uses it to resolve events that timed out during confirmation.
func (e *Executor) ConfirmationStatus(ctx context.Context, signature string) (Confirmation, error) {
	status, err := e.rpc.GetSignatureStatus(ctx, signature)
	if err != nil {
		return ConfirmationUnknown, err
	}
	if status == nil {
		return ConfirmationUnknown, nil
	}
	if status.Err != nil {
		return ConfirmationFailed, nil
	}
	if status.ConfirmationStatus != nil {
		switch *status.ConfirmationStatus {
		case rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
			return ConfirmationConfirmed, nil
		}
	}
	return ConfirmationUnknown, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEventNotFound occurs when no ledger event matches the lookup.
	ErrEventNotFound = errors.New("ledger event not found")

	// ErrNotPending indicates the event already transitioned out of the
	// pending state, so the requested transition is a duplicate.
	ErrNotPending = errors.New("ledger event already transitioned")

	// ErrCommitUnavailable signals that the store's atomic settle path is
	// not available in this deployment and the caller should fall back to
	// the reconciliation path.
	ErrCommitUnavailable = errors.New("atomic settle path unavailable")
)

const (
	// KindWithdrawal settles funds to an external wallet.
	KindWithdrawal = "withdrawal"
	// KindInternalTransfer settles funds to the user's own linked wallet.
	KindInternalTransfer = "internal_transfer"
	// KindDeposit credits funds detected on-chain by the deposit watcher.
	KindDeposit = "deposit"

	// StatusPending marks an event created before the on-chain submission.
	StatusPending = "pending"
	// StatusCompleted marks a confirmed transfer with a committed debit.
	StatusCompleted = "completed"
	// StatusFailed marks a transfer that never confirmed on-chain.
	StatusFailed = "failed"
)

// Event is the audit record for a settlement attempt that reached the
// execution stage, or for a deposit credit. A pending event whose commit is
// uncertain is never deleted; it is the forensic trail for reconciliation.
type Event struct {
	ID           string
	UserID       string
	Kind         string
	Amount       int64
	Destination  string
	Signature    string // empty until the transfer is settled
	Status       string
	BalanceAfter *int64 // recorded at commit time
	CreatedAt    time.Time
}

// Store is the append-mostly audit log backing rate limiting and
// reconciliation.
type Store interface {
	// Append persists a new event, assigning ID and CreatedAt when unset.
	Append(ctx context.Context, ev Event) (Event, error)

	// MarkFailed transitions a pending event to failed.
	MarkFailed(ctx context.Context, id string) error

	// AttachSignature records the submitted signature on a still-pending
	// event so it can be found again if the commit never lands.
	AttachSignature(ctx context.Context, id, signature string) error

	// Settle transitions a pending event to completed, recording the
	// on-chain signature and the post-debit balance, through the store's
	// single-statement atomic path. Returns ErrCommitUnavailable when the
	// deployment lacks that path and ErrNotPending when the event already
	// transitioned.
	Settle(ctx context.Context, id, signature string, balanceAfter int64) error

	// SettleDirect performs the same transition through a plain guarded
	// update. It is the reconciliation fallback's primitive.
	SettleDirect(ctx context.Context, id, signature string, balanceAfter int64) error

	// FindBySignature returns the event carrying the given signature.
	FindBySignature(ctx context.Context, signature string) (Event, error)

	// CompletedTotalSince sums completed amounts for (user, kind) created
	// at or after the given instant. Feeds the daily rate limiter.
	CompletedTotalSince(ctx context.Context, userID, kind string, since time.Time) (int64, error)

	// ListPendingBefore returns pending events created before the cutoff,
	// oldest first. Feeds the confirmation sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]Event, error)
}

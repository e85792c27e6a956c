package balance

import (
	"context"
	"errors"
	"fmt"
)

// ErrAccountNotFound occurs when no custodial account exists for the user.
var ErrAccountNotFound = errors.New("account not found")

// InsufficientBalanceError indicates the custodial balance cannot cover the
// requested debit. It carries the numbers the caller needs to self-correct.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available=%d requested=%d", e.Available, e.Requested)
}

// Movement captures a balance mutation outcome.
type Movement struct {
	UserID string
	Before int64
	After  int64
}

// Store is the authoritative source of custodial balances. ReserveAndDebit and
// Credit must be atomic with respect to concurrent callers on the same user:
// the conditional decrement is the only serialization point in the settlement
// path, so it can never be split into a read followed by a write.
type Store interface {
	// Ensure guarantees a zero-balance account row exists for the user.
	Ensure(ctx context.Context, userID string) error

	// Balance returns the current custodial balance in lamports.
	Balance(ctx context.Context, userID string) (int64, error)

	// ReserveAndDebit decrements the balance as a single check-and-set.
	// It fails with *InsufficientBalanceError when the balance cannot cover
	// the amount; the balance is never driven below zero.
	ReserveAndDebit(ctx context.Context, userID string, amount int64) (Movement, error)

	// Credit increments the balance. Used for deposits and for rolling back
	// a reservation whose on-chain execution failed before submission.
	Credit(ctx context.Context, userID string, amount int64) (Movement, error)
}

package account

import (
	"context"
	"errors"
)

// ErrNotFound occurs when no account exists for the user.
var ErrNotFound = errors.New("account not found")

// Repository persists account metadata.
type Repository interface {
	Create(ctx context.Context, acc Account) error
	Get(ctx context.Context, userID string) (Account, error)
	LinkWallet(ctx context.Context, userID, address string) error
}

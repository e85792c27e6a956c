package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists custodial balances in PostgreSQL. The conditional
// UPDATE carries the balance invariant: the predicate and the decrement run
// as one statement, so concurrent debits against the same row serialize on
// the row lock and can never both pass a stale check.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed balance store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ensure guarantees an account row exists for the user.
func (s *PostgresStore) Ensure(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (user_id, custodial_balance)
        VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Balance returns the current custodial balance for the user.
func (s *PostgresStore) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := s.db.QueryRow(ctx, `SELECT custodial_balance FROM accounts WHERE user_id = $1`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return bal, nil
}

// ReserveAndDebit applies a conditional decrement in a single statement.
func (s *PostgresStore) ReserveAndDebit(ctx context.Context, userID string, amount int64) (Movement, error) {
	if amount <= 0 {
		return Movement{}, fmt.Errorf("amount must be positive")
	}

	var after int64
	err := s.db.QueryRow(ctx, `UPDATE accounts
        SET custodial_balance = custodial_balance - $2, updated_at = now()
        WHERE user_id = $1 AND custodial_balance >= $2
        RETURNING custodial_balance`, userID, amount).Scan(&after)
	if err == nil {
		return Movement{UserID: userID, Before: after + amount, After: after}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, err
	}

	// Predicate failed: distinguish a missing account from a short balance.
	available, balErr := s.Balance(ctx, userID)
	if balErr != nil {
		return Movement{}, balErr
	}
	return Movement{}, &InsufficientBalanceError{Available: available, Requested: amount}
}

// Credit increments the balance unconditionally.
func (s *PostgresStore) Credit(ctx context.Context, userID string, amount int64) (Movement, error) {
	if amount <= 0 {
		return Movement{}, fmt.Errorf("amount must be positive")
	}

	var after int64
	err := s.db.QueryRow(ctx, `UPDATE accounts
        SET custodial_balance = custodial_balance + $2, updated_at = now()
        WHERE user_id = $1
        RETURNING custodial_balance`, userID, amount).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, ErrAccountNotFound
	}
	if err != nil {
		return Movement{}, err
	}
	return Movement{UserID: userID, Before: after - amount, After: after}, nil
}

package account

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores account metadata in PostgreSQL. It shares the
// accounts table with the balance store but never touches the balance column.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account row with a zero balance.
func (r *PostgresRepository) Create(ctx context.Context, acc Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (user_id, custodial_balance, wallet_address, created_at, updated_at)
        VALUES ($1, 0, NULLIF($2, ''), $3, $3) ON CONFLICT (user_id) DO NOTHING`,
		acc.UserID, acc.WalletAddress, acc.CreatedAt.UTC())
	return err
}

// Get fetches account metadata by user identifier.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT user_id, COALESCE(wallet_address, ''), created_at, updated_at
        FROM accounts WHERE user_id = $1`, userID)

	var acc Account
	var createdAt, updatedAt time.Time
	if err := row.Scan(&acc.UserID, &acc.WalletAddress, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acc.CreatedAt = createdAt.UTC()
	acc.UpdatedAt = updatedAt.UTC()
	return acc, nil
}

// LinkWallet records the user's personal settlement address.
func (r *PostgresRepository) LinkWallet(ctx context.Context, userID, address string) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET wallet_address = $2, updated_at = now()
        WHERE user_id = $1`, userID, address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

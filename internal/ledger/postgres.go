package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUndefinedFunction = "42883"

// PostgresStore persists ledger events in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed event store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts a new ledger event.
func (s *PostgresStore) Append(ctx context.Context, ev Event) (Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO ledger_events
        (id, user_id, kind, amount, destination, signature, status, balance_after, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`,
		ev.ID, ev.UserID, ev.Kind, ev.Amount, ev.Destination, ev.Signature, ev.Status, ev.BalanceAfter, ev.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

// MarkFailed transitions a pending event to failed.
func (s *PostgresStore) MarkFailed(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE ledger_events SET status = $2
        WHERE id = $1 AND status = $3`, id, StatusFailed, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// AttachSignature records the submitted signature on a pending event.
func (s *PostgresStore) AttachSignature(ctx context.Context, id, signature string) error {
	tag, err := s.db.Exec(ctx, `UPDATE ledger_events SET signature = $2
        WHERE id = $1 AND status = $3`, id, signature, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// Settle completes a pending event through the settle_ledger_event stored
// function, which records signature and balance snapshot in one statement.
// Deployments without the function report ErrCommitUnavailable so callers
// can fall back to the reconciliation path.
func (s *PostgresStore) Settle(ctx context.Context, id, signature string, balanceAfter int64) error {
	var settled bool
	err := s.db.QueryRow(ctx, `SELECT settle_ledger_event($1, $2, $3)`, id, signature, balanceAfter).Scan(&settled)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedFunction {
			return ErrCommitUnavailable
		}
		return err
	}
	if !settled {
		return ErrNotPending
	}
	return nil
}

// SettleDirect completes a pending event with a plain guarded update.
func (s *PostgresStore) SettleDirect(ctx context.Context, id, signature string, balanceAfter int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE ledger_events
        SET status = $2, signature = $3, balance_after = $4
        WHERE id = $1 AND status = $5`,
		id, StatusCompleted, signature, balanceAfter, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// FindBySignature returns the event carrying the given on-chain signature.
func (s *PostgresStore) FindBySignature(ctx context.Context, signature string) (Event, error) {
	row := s.db.QueryRow(ctx, `SELECT id, user_id, kind, amount, destination,
        COALESCE(signature, ''), status, balance_after, created_at
        FROM ledger_events WHERE signature = $1`, signature)
	return scanEvent(row)
}

// CompletedTotalSince sums completed amounts for the user and kind since the
// given instant.
func (s *PostgresStore) CompletedTotalSince(ctx context.Context, userID, kind string, since time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ledger_events
        WHERE user_id = $1 AND kind = $2 AND status = $3 AND created_at >= $4`,
		userID, kind, StatusCompleted, since).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListPendingBefore returns pending events older than the cutoff, oldest first.
func (s *PostgresStore) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]Event, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, kind, amount, destination,
        COALESCE(signature, ''), status, balance_after, created_at
        FROM ledger_events WHERE status = $1 AND created_at < $2
        ORDER BY created_at`, StatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (Event, error) {
	var ev Event
	var createdAt time.Time
	err := row.Scan(&ev.ID, &ev.UserID, &ev.Kind, &ev.Amount, &ev.Destination,
		&ev.Signature, &ev.Status, &ev.BalanceAfter, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, err
	}
	ev.CreatedAt = createdAt.UTC()
	return ev, nil
}

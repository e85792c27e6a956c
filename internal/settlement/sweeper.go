package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/solbet/custody/internal/alert"
	"github.com/solbet/custody/internal/balance"
	"github.com/solbet/custody/internal/ledger"
	"github.com/solbet/custody/internal/solana"
)

// StatusChecker reports the network's view of a submitted signature.
type StatusChecker interface {
	ConfirmationStatus(ctx context.Context, signature string) (solana.Confirmation, error)
}

// Sweeper periodically re-checks pending events older than the confirmation
// timeout: transfers that confirmed late are committed, transfers that
// errored on-chain are rolled back and marked failed, and anything it cannot
// resolve is surfaced to operators.
type Sweeper struct {
	events     ledger.Store
	balances   balance.Store
	status     StatusChecker
	committers []Committer
	alerts     alert.Notifier
	maxAge     time.Duration
	interval   time.Duration
	logger     *slog.Logger
}

// NewSweeper wires a confirmation sweep.
func NewSweeper(
	events ledger.Store,
	balances balance.Store,
	status StatusChecker,
	committers []Committer,
	alerts alert.Notifier,
	maxAge, interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		events:     events,
		balances:   balances,
		status:     status,
		committers: committers,
		alerts:     alerts,
		maxAge:     maxAge,
		interval:   interval,
		logger:     logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce resolves stale pending events a single time.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	pending, err := s.events.ListPendingBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweep list pending", slog.Any("error", err))
		return
	}

	for _, ev := range pending {
		s.resolve(ctx, ev)
	}
}

func (s *Sweeper) resolve(ctx context.Context, ev ledger.Event) {
	if ev.Signature == "" {
		// Never submitted (or the signature was lost before it could be
		// recorded): nothing to check on-chain, manual reconciliation only.
		s.alerts.Critical(ctx, alert.Event{
			Kind:   alert.KindSweepUnresolved,
			UserID: ev.UserID,
			Amount: ev.Amount,
			Body:   "stale pending event without a signature",
		})
		return
	}

	confirmation, err := s.status.ConfirmationStatus(ctx, ev.Signature)
	if err != nil {
		s.logger.Warn("sweep status check failed",
			slog.String("signature", ev.Signature), slog.Any("error", err))
		return
	}

	switch confirmation {
	case solana.ConfirmationConfirmed:
		if _, err := s.commit(ctx, ev); err != nil {
			s.alerts.Critical(ctx, alert.Event{
				Kind:      alert.KindReconciliationRequired,
				UserID:    ev.UserID,
				Signature: ev.Signature,
				Amount:    ev.Amount,
				Body:      "late-confirmed transfer without a committed debit record",
			})
			return
		}
		s.logger.Info("sweep committed late confirmation",
			slog.String("event_id", ev.ID), slog.String("signature", ev.Signature))

	case solana.ConfirmationFailed:
		// Definitive on-chain failure: return the reservation.
		if err := s.events.MarkFailed(ctx, ev.ID); err != nil {
			s.logger.Error("sweep mark failed", slog.String("event_id", ev.ID), slog.Any("error", err))
			return
		}
		if _, err := s.balances.Credit(ctx, ev.UserID, ev.Amount); err != nil {
			s.alerts.Critical(ctx, alert.Event{
				Kind:      alert.KindReconciliationRequired,
				UserID:    ev.UserID,
				Signature: ev.Signature,
				Amount:    ev.Amount,
				Body:      "failed transfer marked but rollback credit failed",
			})
			return
		}
		s.logger.Info("sweep rolled back failed transfer",
			slog.String("event_id", ev.ID), slog.String("signature", ev.Signature))

	default:
		s.alerts.Critical(ctx, alert.Event{
			Kind:      alert.KindSweepUnresolved,
			UserID:    ev.UserID,
			Signature: ev.Signature,
			Amount:    ev.Amount,
			Body:      "pending past the confirmation window with unknown status",
		})
	}
}

func (s *Sweeper) commit(ctx context.Context, ev ledger.Event) (balance.Movement, error) {
	var lastErr error = ledger.ErrCommitUnavailable
	for _, committer := range s.committers {
		m, err := committer.Commit(ctx, ev, ev.Signature)
		if err == nil {
			return m, nil
		}
		lastErr = err
	}
	return balance.Movement{}, lastErr
}

package limits

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solbet/custody/internal/ledger"
)

// DailyLimitExceededError reports the rolling usage context alongside the
// rejection so the caller can self-correct.
type DailyLimitExceededError struct {
	Used      int64
	Remaining int64
	Limit     int64
}

func (e *DailyLimitExceededError) Error() string {
	return fmt.Sprintf("daily limit exceeded: used=%d remaining=%d limit=%d", e.Used, e.Remaining, e.Limit)
}

// Decision summarizes a user's rolling usage against a per-kind daily cap.
type Decision struct {
	Allowed   bool
	Used      int64
	Remaining int64
	Limit     int64
}

// Caps maps a settlement kind to its daily cap in lamports.
type Caps map[string]int64

// Limiter computes rolling daily usage from the completed ledger events of
// the current UTC calendar day. When the audit store is unreachable the
// limiter either fails open with a warning (the default, trading strict
// enforcement for availability) or fails closed when configured so.
type Limiter struct {
	events     ledger.Store
	caps       Caps
	failClosed bool
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a daily rate limiter over the ledger store.
func New(events ledger.Store, caps Caps, failClosed bool, logger *slog.Logger) *Limiter {
	return &Limiter{events: events, caps: caps, failClosed: failClosed, logger: logger, now: time.Now}
}

// CheckDaily reports whether adding amount keeps the user within the daily
// cap for the given kind. Kinds without a configured cap are unlimited.
func (l *Limiter) CheckDaily(ctx context.Context, userID, kind string, amount int64) (Decision, error) {
	limit, capped := l.caps[kind]
	if !capped || limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	used, err := l.events.CompletedTotalSince(ctx, userID, kind, dayStart)
	if err != nil {
		if l.failClosed {
			return Decision{}, fmt.Errorf("daily limit check: %w", err)
		}
		l.logger.Warn("daily limit check failed, allowing request",
			slog.String("user_id", userID), slog.String("kind", kind), slog.Any("error", err))
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	if used+amount > limit {
		return Decision{Allowed: false, Used: used, Remaining: remaining, Limit: limit},
			&DailyLimitExceededError{Used: used, Remaining: remaining, Limit: limit}
	}

	return Decision{Allowed: true, Used: used, Remaining: remaining, Limit: limit}, nil
}

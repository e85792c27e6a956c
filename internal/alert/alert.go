package alert

import (
	"context"
	"log/slog"
)

const (
	// KindReconciliationRequired flags a confirmed on-chain transfer whose
	// balance commit could not be confirmed. Real funds have moved, so this
	// is always operator-visible and never folded into a user-facing error.
	KindReconciliationRequired = "reconciliation_required"
	// KindConfirmationPending flags a submitted transfer that timed out
	// waiting for network confirmation.
	KindConfirmationPending = "confirmation_pending"
	// KindSweepUnresolved flags a stale pending event the sweep could not resolve.
	KindSweepUnresolved = "sweep_unresolved"
)

// Event describes an operator alert.
type Event struct {
	Kind      string
	UserID    string
	Signature string
	Amount    int64
	Body      string
}

// Notifier delivers operator alerts to downstream systems.
type Notifier interface {
	Critical(ctx context.Context, event Event)
}

// LoggerNotifier writes alerts to the structured logger at error level, the
// minimum viable operator channel.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging alert sink.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Critical writes the alert to the structured logger.
func (n *LoggerNotifier) Critical(_ context.Context, event Event) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Error("operator alert",
		slog.String("kind", event.Kind),
		slog.String("user_id", event.UserID),
		slog.String("signature", event.Signature),
		slog.Int64("amount", event.Amount),
		slog.String("body", event.Body),
	)
}

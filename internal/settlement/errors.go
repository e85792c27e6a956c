package settlement

import (
	"errors"
	"fmt"
)

// ErrNoLinkedWallet occurs when an internal transfer is requested for an
// account that never registered a personal settlement address.
var ErrNoLinkedWallet = errors.New("no linked wallet")

// AmountOutOfRangeError rejects an amount outside the configured bounds.
type AmountOutOfRangeError struct {
	Amount int64
	Min    int64
	Max    int64
}

func (e *AmountOutOfRangeError) Error() string {
	return fmt.Sprintf("amount out of range: amount=%d min=%d max=%d", e.Amount, e.Min, e.Max)
}

// ReconciliationPendingError reports a transfer that moved (or may have
// moved) funds on-chain while its ledger commit remains unresolved. The
// event stays pending and an operator alert has been raised; the caller
// must not retry blindly.
type ReconciliationPendingError struct {
	Signature string
}

func (e *ReconciliationPendingError) Error() string {
	return fmt.Sprintf("settlement pending reconciliation: signature=%s", e.Signature)
}

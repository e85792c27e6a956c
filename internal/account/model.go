package account

import "time"

// Account holds per-user settlement metadata. The custodial balance itself
// lives behind the balance store and is never assigned from request data.
type Account struct {
	UserID        string
	WalletAddress string // optional linked on-chain wallet, base58
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

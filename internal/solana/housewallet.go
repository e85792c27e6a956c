package solana

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/types"
)

// HouseWallet holds the shared settlement wallet's signing key and reserve
// threshold. It is constructed once at process start and injected into the
// executor; only the executor spends from it.
type HouseWallet struct {
	account types.Account
	reserve uint64
}

// LoadHouseWallet parses a base58-encoded ed25519 secret key.
func LoadHouseWallet(base58Key string, reserveLamports uint64) (*HouseWallet, error) {
	account, err := types.AccountFromBase58(base58Key)
	if err != nil {
		return nil, fmt.Errorf("parse house wallet key: %w", err)
	}
	return &HouseWallet{account: account, reserve: reserveLamports}, nil
}

// NewEphemeralHouseWallet generates a throwaway wallet. Useful for tests.
func NewEphemeralHouseWallet(reserveLamports uint64) *HouseWallet {
	return &HouseWallet{account: types.NewAccount(), reserve: reserveLamports}
}

// Address returns the wallet's base58 public key.
func (w *HouseWallet) Address() string {
	return w.account.PublicKey.ToBase58()
}

// Reserve returns the lamports that must remain after any settlement.
func (w *HouseWallet) Reserve() uint64 {
	return w.reserve
}

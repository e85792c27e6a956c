package solana

import (
	"errors"

	"github.com/mr-tron/base58"
)

// ErrInvalidAddress occurs when a destination string is not a well-formed
// Solana public key.
var ErrInvalidAddress = errors.New("invalid address")

const publicKeyLength = 32

// ValidateAddress confirms the string decodes to a 32-byte ed25519 public
// key. Every transfer destination must pass this check before it is handed
// to the executor; an invalid address must never reach the signing step.
func ValidateAddress(address string) error {
	if address == "" {
		return ErrInvalidAddress
	}
	// Base58 strings for 32 bytes land between 32 and 44 characters.
	if len(address) < 32 || len(address) > 44 {
		return ErrInvalidAddress
	}
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != publicKeyLength {
		return ErrInvalidAddress
	}
	return nil
}

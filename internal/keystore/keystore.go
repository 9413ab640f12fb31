// Package keystore holds the local signing identity that seals are written
// from. It plays the role of a browser wallet for the command line.
package keystore

import (
	"context"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"chronovault/internal/chrono"
)

// Keystore creates and unlocks a wallet identity.
type Keystore interface {
	// Setup creates a new identity protected by passphrase.
	Setup(passphrase string) error

	// Unlock decrypts the identity and returns a wallet for it.
	Unlock(passphrase string) (*Wallet, error)

	// Address returns the public address without unlocking.
	Address() (string, error)

	// IsConfigured reports whether an identity exists.
	IsConfigured() bool
}

// Wallet is an unlocked identity on one chain. It implements chrono.Wallet
// with a single account.
type Wallet struct {
	address string
	chainID int64
}

// NewWallet returns an unlocked wallet for address.
func NewWallet(address string, chainID int64) *Wallet {
	return &Wallet{address: address, chainID: chainID}
}

// Address returns the wallet's account.
func (w *Wallet) Address() string {
	return w.address
}

// RequestAccounts returns the wallet's only account.
func (w *Wallet) RequestAccounts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []string{w.address}, nil
}

// ChainID returns the chain the wallet signs for.
func (w *Wallet) ChainID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return w.chainID, nil
}

var _ chrono.Wallet = (*Wallet)(nil)

// AddressFromPublicKey derives a 20-byte hex address the way account
// addresses are derived from keys: the last 20 bytes of the Keccak-256 hash.
func AddressFromPublicKey(pub []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}

// IsAddress reports whether s looks like a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

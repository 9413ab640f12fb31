package keystore

import "fmt"

// TestKeystore is a deterministic keystore for tests. Any passphrase
// unlocks it and the address is derived from its name.
type TestKeystore struct {
	address     string
	chainID     int64
	setupCalled bool
}

var _ Keystore = (*TestKeystore)(nil)

// NewTestKeystore creates a TestKeystore whose address is derived from name.
func NewTestKeystore(name string, chainID int64) *TestKeystore {
	return &TestKeystore{address: AddressFromPublicKey([]byte(name)), chainID: chainID}
}

func (k *TestKeystore) Setup(passphrase string) error {
	k.setupCalled = true
	return nil
}

func (k *TestKeystore) Unlock(passphrase string) (*Wallet, error) {
	return NewWallet(k.address, k.chainID), nil
}

func (k *TestKeystore) Address() (string, error) {
	if k.address == "" {
		return "", fmt.Errorf("test keystore has no address")
	}
	return k.address, nil
}

func (k *TestKeystore) IsConfigured() bool {
	return true
}

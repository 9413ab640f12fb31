package keystore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// AgeKeystore keeps an X25519 identity encrypted with the user's passphrase
// using age's scrypt-based passphrase encryption. The derived address is
// stored in plaintext next to it so it can be shown without unlocking.
type AgeKeystore struct {
	keyPath     string
	addressPath string
	chainID     int64
}

var _ Keystore = (*AgeKeystore)(nil)

// NewAgeKeystore creates a keystore whose encrypted identity lives at keyPath.
func NewAgeKeystore(keyPath string, chainID int64) *AgeKeystore {
	return &AgeKeystore{
		keyPath:     keyPath,
		addressPath: keyPath + ".address",
		chainID:     chainID,
	}
}

// Setup generates a new identity, encrypts it with passphrase and records
// its address. An existing identity is never overwritten.
func (k *AgeKeystore) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase is required")
	}
	if k.IsConfigured() {
		return fmt.Errorf("wallet already exists at %s", k.keyPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(k.keyPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	f, err := os.OpenFile(k.keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating key file: %w", err)
	}
	// From here on a failure must not leave a key file behind, or
	// IsConfigured would report a wallet that can never be unlocked.
	if err := encryptIdentity(f, identity, passphrase); err != nil {
		f.Close()
		os.Remove(k.keyPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(k.keyPath)
		return fmt.Errorf("closing key file: %w", err)
	}

	address := addressOf(identity)
	if err := os.WriteFile(k.addressPath, []byte(address+"\n"), 0644); err != nil {
		os.Remove(k.keyPath)
		return fmt.Errorf("writing address: %w", err)
	}
	return nil
}

func encryptIdentity(dst io.Writer, identity *age.X25519Identity, passphrase string) error {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	w, err := age.Encrypt(dst, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("writing encrypted identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted identity: %w", err)
	}
	return nil
}

// Unlock decrypts the identity and returns a wallet for its address.
func (k *AgeKeystore) Unlock(passphrase string) (*Wallet, error) {
	data, err := os.ReadFile(k.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(data), scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypting identity: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identity found in key file")
	}
	x, ok := identities[0].(*age.X25519Identity)
	if !ok {
		return nil, fmt.Errorf("unsupported identity type %T", identities[0])
	}

	return NewWallet(addressOf(x), k.chainID), nil
}

// Address reads the plaintext address recorded by Setup.
func (k *AgeKeystore) Address() (string, error) {
	data, err := os.ReadFile(k.addressPath)
	if err != nil {
		return "", fmt.Errorf("reading address: %w", err)
	}
	address := strings.TrimSpace(string(data))
	if !IsAddress(address) {
		return "", fmt.Errorf("address file %s is corrupt", k.addressPath)
	}
	return address, nil
}

// IsConfigured returns true if the encrypted identity exists.
func (k *AgeKeystore) IsConfigured() bool {
	_, err := os.Stat(k.keyPath)
	return err == nil
}

func addressOf(id *age.X25519Identity) string {
	return AddressFromPublicKey([]byte(id.Recipient().String()))
}

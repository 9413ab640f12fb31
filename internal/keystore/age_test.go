package keystore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"

	"chronovault/internal/config"
)

func newTestAgeKeystore(t *testing.T) *AgeKeystore {
	t.Helper()
	return NewAgeKeystore(filepath.Join(t.TempDir(), "keys", "wallet.age"), config.DefaultChainID)
}

func TestAgeKeystore_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	k := newTestAgeKeystore(t)
	if k.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
	if _, err := k.Address(); err == nil {
		t.Error("Address() before Setup expected error")
	}
}

func TestAgeKeystore_SetupUnlock(t *testing.T) {
	t.Parallel()
	k := newTestAgeKeystore(t)

	if err := k.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !k.IsConfigured() {
		t.Fatal("IsConfigured() = false after Setup")
	}

	address, err := k.Address()
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if !IsAddress(address) {
		t.Errorf("Address() = %q, want 0x-prefixed 20-byte hex", address)
	}

	w, err := k.Unlock("correct horse")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if w.Address() != address {
		t.Errorf("unlocked address = %q, want %q", w.Address(), address)
	}

	accounts, err := w.RequestAccounts(context.Background())
	if err != nil || len(accounts) != 1 || accounts[0] != address {
		t.Errorf("RequestAccounts() = %v, %v", accounts, err)
	}
	chain, err := w.ChainID(context.Background())
	if err != nil || chain != config.DefaultChainID {
		t.Errorf("ChainID() = %d, %v", chain, err)
	}

	info, err := os.Stat(k.keyPath)
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key file mode = %o, want 600", perm)
	}
}

func TestAgeKeystore_WrongPassphrase(t *testing.T) {
	t.Parallel()
	k := newTestAgeKeystore(t)
	if err := k.Setup("right"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := k.Unlock("wrong"); err == nil {
		t.Error("Unlock() with wrong passphrase expected error")
	}
}

func TestAgeKeystore_SetupRefusesOverwrite(t *testing.T) {
	t.Parallel()
	k := newTestAgeKeystore(t)
	if err := k.Setup("one"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	before, _ := k.Address()

	if err := k.Setup("two"); err == nil {
		t.Error("second Setup() expected error")
	}
	after, _ := k.Address()
	if before != after {
		t.Errorf("address changed from %s to %s", before, after)
	}
}

func TestAgeKeystore_SetupRequiresPassphrase(t *testing.T) {
	t.Parallel()
	k := newTestAgeKeystore(t)
	if err := k.Setup(""); err == nil {
		t.Error("Setup(\"\") expected error")
	}
	if k.IsConfigured() {
		t.Error("IsConfigured() = true after failed Setup")
	}
}

func TestAgeKeystore_FailedSetupRemovesKeyFile(t *testing.T) {
	t.Parallel()
	k := newTestAgeKeystore(t)
	// A directory where the address file belongs makes the last write fail.
	if err := os.MkdirAll(k.addressPath, 0755); err != nil {
		t.Fatal(err)
	}

	if err := k.Setup("pw"); err == nil {
		t.Fatal("Setup() expected error")
	}
	if k.IsConfigured() {
		t.Error("IsConfigured() = true after failed Setup")
	}
	if _, err := os.Stat(k.keyPath); !os.IsNotExist(err) {
		t.Errorf("key file left behind: stat error = %v", err)
	}

	// Once the obstruction is gone the same path can be set up.
	if err := os.Remove(k.addressPath); err != nil {
		t.Fatal(err)
	}
	if err := k.Setup("pw"); err != nil {
		t.Fatalf("Setup() after cleanup error = %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncryptIdentity_WriteError(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	if err := encryptIdentity(failingWriter{}, identity, "pw"); err == nil {
		t.Error("encryptIdentity() to a failing writer expected error")
	}
}

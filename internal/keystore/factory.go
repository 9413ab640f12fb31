package keystore

import (
	"fmt"

	"chronovault/internal/config"
)

// NewKeystoreFromConfig creates a Keystore based on the wallet config type.
func NewKeystoreFromConfig(cfg config.WalletConfig) (Keystore, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.KeyPath == "" {
			return nil, fmt.Errorf("key_path required for age wallet")
		}
		return NewAgeKeystore(cfg.KeyPath, cfg.ChainID), nil
	case "test":
		return NewTestKeystore("chronovault-test", cfg.ChainID), nil
	default:
		return nil, fmt.Errorf("unknown wallet type: %q", cfg.Type)
	}
}

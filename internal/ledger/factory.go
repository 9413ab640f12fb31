package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"chronovault/internal/chrono"
	"chronovault/internal/config"
)

// FileName is the ledger database file inside the configured data dir.
const FileName = "ledger.db"

// NewLedgerFromConfig opens the ledger described by cfg. In-memory ledgers
// are migrated immediately; on-disk ledgers are left for the caller to check
// or migrate.
func NewLedgerFromConfig(cfg config.LedgerConfig, chainID int64, clock chrono.Clock) (*SQLiteLedger, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite ledger")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
		return NewSQLiteLedger(filepath.Join(cfg.DataDir, FileName), chainID, clock)
	case "memory":
		l, err := NewSQLiteLedger(":memory:", chainID, clock)
		if err != nil {
			return nil, err
		}
		if err := l.Migrate(); err != nil {
			l.Close()
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}

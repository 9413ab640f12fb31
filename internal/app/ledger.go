package app

import (
	"context"
	"fmt"

	"chronovault/internal/chrono"
	"chronovault/internal/config"
	"chronovault/internal/ledger"
)

// LedgerInfo summarizes the local ledger for `ledger status`.
type LedgerInfo struct {
	Path    string
	Head    uint64
	Pending []string
}

func openCheckedLedger(cfg *config.Config) (*ledger.SQLiteLedger, error) {
	l, err := ledger.NewLedgerFromConfig(cfg.Ledger, cfg.Wallet.ChainID, chrono.RealClock{})
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if err := l.CheckMigrations(); err != nil {
		l.Close()
		return nil, fmt.Errorf("ledger schema out of date: %w", err)
	}
	return l, nil
}

// MigrateLedger brings the configured ledger's schema up to date.
func MigrateLedger(cfg *config.Config) error {
	l, err := ledger.NewLedgerFromConfig(cfg.Ledger, cfg.Wallet.ChainID, chrono.RealClock{})
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer l.Close()

	if err := l.Migrate(); err != nil {
		return fmt.Errorf("migrating ledger: %w", err)
	}
	return nil
}

// BackupLedger writes a consistent snapshot of the configured ledger to dest.
func BackupLedger(cfg *config.Config, dest string) error {
	l, err := openCheckedLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	return l.BackupTo(dest)
}

// LedgerStatus reports where the ledger lives, its latest block and the
// writes that were submitted but never included.
func LedgerStatus(ctx context.Context, cfg *config.Config) (*LedgerInfo, error) {
	l, err := openCheckedLedger(cfg)
	if err != nil {
		return nil, err
	}
	defer l.Close()

	head, err := l.Head(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := l.Pending(ctx)
	if err != nil {
		return nil, err
	}
	return &LedgerInfo{Path: l.Path(), Head: head, Pending: pending}, nil
}

// ConfirmPending includes every pending write, oldest first. A seal whose
// submission was interrupted before inclusion becomes readable afterwards.
func ConfirmPending(ctx context.Context, cfg *config.Config) ([]*chrono.Receipt, error) {
	l, err := openCheckedLedger(cfg)
	if err != nil {
		return nil, err
	}
	defer l.Close()

	pending, err := l.Pending(ctx)
	if err != nil {
		return nil, err
	}

	receipts := make([]*chrono.Receipt, 0, len(pending))
	for _, hash := range pending {
		tx, err := l.Transaction(ctx, hash)
		if err != nil {
			return receipts, err
		}
		if tx == nil {
			continue
		}
		r, err := tx.Wait(ctx)
		if err != nil {
			return receipts, fmt.Errorf("confirming %s: %w", hash, err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}
